package render

import (
	"testing"

	"github.com/aukilabs/quadmap/quadtree"
	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"
)

func newTestScreen(t *testing.T, width, height int) tcell.SimulationScreen {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)

	screen.SetSize(width, height)
	return screen
}

func backgroundAt(screen tcell.Screen, x, y int) tcell.Color {
	_, _, style, _ := screen.GetContent(x, y)
	_, bg, _ := style.Decompose()
	return bg
}

func TestTerminalSurface(t *testing.T) {
	screen := newTestScreen(t, 10, 5)
	s := TerminalSurface{Screen: screen, OffsetX: 2, OffsetY: 1}

	tree := newTestTree(t)
	quadtree.Render(tree, tree.Root(), s, 0, 0, 4, 4, quadtree.MapPalette{1: red, 2: blue})

	require.Equal(t, tcell.NewRGBColor(0xff, 0, 0), backgroundAt(screen, 5, 1))
	require.Equal(t, tcell.NewRGBColor(0, 0, 0xff), backgroundAt(screen, 4, 3))
	require.Equal(t, tcell.ColorDefault, backgroundAt(screen, 2, 1))
	require.Equal(t, tcell.ColorDefault, backgroundAt(screen, 0, 0))

	t.Run("rectangles are clipped to the screen", func(t *testing.T) {
		screen := newTestScreen(t, 3, 3)
		s := TerminalSurface{Screen: screen, OffsetX: -1, OffsetY: 1}

		s.FillRect(0, 0, 10, 10, blue)
		require.Equal(t, tcell.ColorDefault, backgroundAt(screen, 0, 0))
		require.Equal(t, tcell.NewRGBColor(0, 0, 0xff), backgroundAt(screen, 0, 1))
		require.Equal(t, tcell.NewRGBColor(0, 0, 0xff), backgroundAt(screen, 2, 2))
	})
}
