package ui

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/marquee/internal/display"
)

// Canvas is the terminal implementation of display.Surface. It keeps the
// nodes and their animations and rasterizes them on demand. Like the
// scheduler it is only touched from Update and View.
type Canvas struct {
	w, h  int
	nodes map[display.NodeID]*canvasNode
	order []display.NodeID
}

type canvasNode struct {
	node  display.Node
	y     int
	fromX int
	toX   int
	start time.Time
	d     time.Duration
}

var _ display.Surface = (*Canvas)(nil)

// NewCanvas creates an empty canvas of w by h cells.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{w: w, h: h, nodes: make(map[display.NodeID]*canvasNode)}
}

// Resize changes the drawable area. Nodes keep their animations.
func (c *Canvas) Resize(w, h int) {
	c.w, c.h = max(w, 0), max(h, 0)
}

func (c *Canvas) Size() (int, int) { return c.w, c.h }

func (c *Canvas) AddNode(n display.Node) display.NodeID {
	c.nodes[n.ID] = &canvasNode{node: n}
	c.order = append(c.order, n.ID)
	return n.ID
}

func (c *Canvas) SetVerticalOffset(id display.NodeID, y int) {
	if cn, ok := c.nodes[id]; ok {
		cn.y = y
	}
}

func (c *Canvas) Animate(id display.NodeID, fromX, toX int, start time.Time, d time.Duration) {
	if cn, ok := c.nodes[id]; ok {
		cn.fromX, cn.toX, cn.start, cn.d = fromX, toX, start, d
	}
}

func (c *Canvas) RemoveNode(id display.NodeID) {
	if _, ok := c.nodes[id]; !ok {
		return
	}
	delete(c.nodes, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of nodes on the canvas.
func (c *Canvas) Len() int {
	return len(c.order)
}

func (cn *canvasNode) x(now time.Time) int {
	elapsed := now.Sub(cn.start)
	switch {
	case cn.d <= 0 || elapsed >= cn.d:
		return cn.toX
	case elapsed <= 0:
		return cn.fromX
	}
	p := float64(elapsed) / float64(cn.d)
	return cn.fromX + int(float64(cn.toX-cn.fromX)*p)
}

// cell is one terminal cell. cont marks the right half of a wide rune.
type cell struct {
	r    rune
	link bool
	cont bool
}

// Render rasterizes the canvas at now. Later nodes are drawn over earlier
// ones. The result has exactly h lines of w cells.
func (c *Canvas) Render(now time.Time) string {
	if c.w <= 0 || c.h <= 0 {
		return ""
	}

	grid := make([][]cell, c.h)
	for y := range grid {
		grid[y] = make([]cell, c.w)
		for x := range grid[y] {
			grid[y][x] = cell{r: ' '}
		}
	}

	for _, id := range c.order {
		cn := c.nodes[id]
		if cn.y < 0 || cn.y >= c.h {
			continue
		}
		row := grid[cn.y]
		x := cn.x(now)
		for _, span := range cn.node.Spans {
			for _, r := range span.Text {
				rw := runewidth.RuneWidth(r)
				if rw == 0 {
					continue
				}
				put(row, x, rw, r, span.Link)
				x += rw
				if x >= c.w {
					break
				}
			}
		}
	}

	lines := make([]string, c.h)
	for y, row := range grid {
		lines[y] = renderRow(row)
	}
	return strings.Join(lines, "\n")
}

// put writes r at x, blanking any wide rune it partially overwrites and
// clipping at both edges.
func put(row []cell, x, rw int, r rune, link bool) {
	w := len(row)
	if x+rw <= 0 || x >= w {
		return
	}
	if x < 0 || x+rw > w {
		// Half visible wide rune: show a blank in the visible cell.
		for i := max(x, 0); i < min(x+rw, w); i++ {
			clearAt(row, i)
			row[i] = cell{r: ' ', link: link}
		}
		return
	}
	for i := x; i < x+rw; i++ {
		clearAt(row, i)
	}
	row[x] = cell{r: r, link: link}
	for i := x + 1; i < x+rw; i++ {
		row[i] = cell{link: link, cont: true}
	}
}

// clearAt blanks the wide rune that covers cell i, if any.
func clearAt(row []cell, i int) {
	switch {
	case row[i].cont:
		for j := i - 1; j >= 0; j-- {
			cont := row[j].cont
			row[j] = cell{r: ' '}
			if !cont {
				break
			}
		}
	case runewidth.RuneWidth(row[i].r) > 1:
		for j := i + 1; j < len(row) && row[j].cont; j++ {
			row[j] = cell{r: ' '}
		}
	}
}

// renderRow styles runs of label and link cells.
func renderRow(row []cell) string {
	var out, run strings.Builder
	link := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		if link {
			out.WriteString(LinkStyle.Render(run.String()))
		} else {
			out.WriteString(ItemStyle.Render(run.String()))
		}
		run.Reset()
	}
	for _, c := range row {
		if c.cont {
			continue
		}
		if c.link != link {
			flush()
			link = c.link
		}
		run.WriteRune(c.r)
	}
	flush()
	return out.String()
}
