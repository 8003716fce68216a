// Package camera maps the layout container onto the window.
package camera

// Camera controls the viewport into the layout container.
// At Reset the container is scaled to fit the window and letterboxed.
type Camera struct {
	// Position is the camera center in layout coordinates
	X, Y float32

	// Zoom level (screen pixels per layout pixel)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Container dimensions
	WorldW, WorldH float32

	// Zoom constraints; MinZoom is the fit zoom
	MinZoom, MaxZoom float32
}

// New creates a camera showing the whole container.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
	}
	c.updateLimits()
	c.Reset()
	return c
}

// fitZoom returns the largest zoom at which the whole container is visible.
func (c *Camera) fitZoom() float32 {
	if c.WorldW <= 0 || c.WorldH <= 0 || c.ViewportW <= 0 || c.ViewportH <= 0 {
		return 1
	}
	return min(c.ViewportW/c.WorldW, c.ViewportH/c.WorldH)
}

func (c *Camera) updateLimits() {
	c.MinZoom = c.fitZoom()
	c.MaxZoom = c.MinZoom * 4
}

// WorldToScreen converts layout coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (wy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to layout coordinates.
// Points outside the container map outside it; pointer input may drag there.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wy = c.Y + (sy-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wy-c.Y) <= halfH
}

// Resize updates viewport dimensions and recalculates zoom constraints.
// A camera at the fit zoom stays fitted.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	fitted := c.Fitted()
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.updateLimits()
	if fitted {
		c.Reset()
		return
	}
	c.SetZoom(c.Zoom)
}

// SetWorld updates the container dimensions after a layout resize.
func (c *Camera) SetWorld(worldW, worldH float32) {
	if worldW == c.WorldW && worldH == c.WorldH {
		return
	}
	fitted := c.Fitted()
	c.WorldW = worldW
	c.WorldH = worldH
	c.updateLimits()
	if fitted {
		c.Reset()
		return
	}
	c.SetZoom(c.Zoom)
}

// Fitted reports whether the camera shows the whole container.
func (c *Camera) Fitted() bool {
	return c.Zoom == c.MinZoom && c.X == c.WorldW/2 && c.Y == c.WorldH/2
}

// Pan moves the camera by the given delta in screen pixels.
// The center stays within the container.
func (c *Camera) Pan(dx, dy float32) {
	c.X = clamp(c.X+dx/c.Zoom, 0, c.WorldW)
	c.Y = clamp(c.Y+dy/c.Zoom, 0, c.WorldH)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	if c.Zoom == c.MinZoom {
		c.X, c.Y = c.WorldW/2, c.WorldH/2
	}
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset fits the container to the viewport.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.Zoom = c.MinZoom
}

// ContainerRect returns the container's screen rectangle.
func (c *Camera) ContainerRect() (x, y, w, h float32) {
	x, y = c.WorldToScreen(0, 0)
	return x, y, c.WorldW * c.Zoom, c.WorldH * c.Zoom
}

// VisibleWorldBounds returns the layout-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
