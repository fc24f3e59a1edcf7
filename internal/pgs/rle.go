package pgs

// Render expands the run-length encoded object data for objectID onto canvas.
//
// The object's position comes from the composition, its window from the window
// table. The whole window is cleared before drawing. Drawing starts at the
// object's position and stops when either the source data or the canvas runs
// out; a 00 00 pair moves to the object's left edge on the next row.
//
// A *CorrelationError is returned, with the canvas untouched, when the object
// cannot be placed.
func Render(canvas *Canvas, data []byte, objectID uint16, comp *Composition, windows *WindowTable, palette *Palette) error {
	obj, ok := comp.Object(objectID)
	if !ok {
		return &CorrelationError{ObjectID: objectID, Reason: "not referenced by the composition"}
	}
	win, ok := windows.Window(obj.WindowID)
	if !ok {
		return &CorrelationError{ObjectID: objectID, WindowID: obj.WindowID, Reason: "window not defined"}
	}
	if win.Width == 0 || win.Height == 0 {
		return &CorrelationError{ObjectID: objectID, WindowID: obj.WindowID, Reason: "window has zero size"}
	}
	if obj.X < win.X || obj.Y < win.Y {
		return &CorrelationError{ObjectID: objectID, WindowID: obj.WindowID, Reason: "object starts outside its window"}
	}
	if canvas == nil {
		return &CorrelationError{ObjectID: objectID, WindowID: obj.WindowID, Reason: "no canvas allocated"}
	}

	canvas.ClearRegion(int(win.X), int(win.Y), int(win.Width), int(win.Height))
	decodeRLE(canvas, data, int(obj.X), int(obj.Y), palette)
	return nil
}

// decodeRLE writes data starting at (x, y). Control sequences:
//
//	CC             one pixel of color CC (CC != 0)
//	00 00          end of line
//	00 0L          L pixels of color 0
//	00 4L LL       L pixels of color 0 (14-bit length)
//	00 8L CC       L pixels of color CC
//	00 CL LL CC    L pixels of color CC (14-bit length)
func decodeRLE(canvas *Canvas, data []byte, x, y int, palette *Palette) {
	pix := canvas.Pix
	stride := canvas.Width
	dst := y*stride + x
	src := 0

	for src < len(data) && dst < len(pix) {
		b := data[src]
		src++
		if b != 0 {
			pix[dst] = palette.Gray(b)
			dst++
			continue
		}

		if src >= len(data) {
			return
		}
		c := data[src]
		src++

		var (
			run   int
			color uint8
		)
		switch {
		case c == 0:
			y++
			dst = y*stride + x
			continue
		case c&0xc0 == 0x40:
			if src >= len(data) {
				return
			}
			run = int(c-0x40)<<8 | int(data[src])
			src++
		case c&0xc0 == 0x80:
			if src >= len(data) {
				return
			}
			run = int(c - 0x80)
			color = palette.Gray(data[src])
			src++
		case c&0xc0 == 0xc0:
			if src+1 >= len(data) {
				return
			}
			run = int(c-0xc0)<<8 | int(data[src])
			color = palette.Gray(data[src+1])
			src += 2
		default:
			run = int(c)
		}

		end := min(dst+run, len(pix))
		for i := dst; i < end; i++ {
			pix[i] = color
		}
		dst = end
	}
}
