// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layershell_test

import (
	"context"
	"fmt"

	"github.com/gogpu/gg"

	"github.com/gogpu/layershell/backend"
	_ "github.com/gogpu/layershell/backend/software"
	"github.com/gogpu/layershell/geometry"
	"github.com/gogpu/layershell/headless"
	"github.com/gogpu/layershell/surface"
)

func Example() {
	ctx := context.Background()
	comp := headless.New(headless.WithOutput("HEADLESS-1", 800, 600), headless.WithScale(180))
	client := comp.NewClient()
	defer client.Close()

	h, err := client.Register(ctx, surface.LayerSpec{
		Namespace: "bar",
		Layer:     surface.LayerTop,
		Anchor:    surface.AnchorTop | surface.AnchorLeft | surface.AnchorRight,
		Size:      geometry.Size{Height: 40},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	r, err := h.AttachBackendNamed(backend.BackendSoftware)
	if err != nil {
		fmt.Println(err)
		return
	}
	out, err := r.Render(ctx, func(dc *gg.Context) error {
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.DrawRectangle(0, 0, 800, 40)
		return dc.Fill()
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	img, _ := comp.Snapshot(h.ID())
	fmt.Println(out)
	fmt.Println("logical:", h.Geometry().Logical())
	fmt.Println("physical:", h.Geometry().Physical())
	fmt.Println("snapshot:", img.Bounds().Dx(), "x", img.Bounds().Dy())
	// Output:
	// presented
	// logical: 800x40
	// physical: 1200x60
	// snapshot: 800 x 40
}
