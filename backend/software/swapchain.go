// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"
	"slices"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/layershell/backend"
	"github.com/gogpu/layershell/internal/pixfmt"
	"github.com/gogpu/layershell/present"
)

// image is a presentable BGRA8 image in host memory.
type image struct {
	index    uint32
	width    uint32
	height   uint32
	pix      []byte
	acquired bool
	sc       *swapchain
}

// write converts RGBA rows into the image.
func (img *image) write(src []byte, extent gputypes.Extent3D) error {
	if extent.Width != img.width || extent.Height != img.height {
		return fmt.Errorf("extent %dx%d does not match image %dx%d",
			extent.Width, extent.Height, img.width, img.height)
	}
	return pixfmt.SwapRB(img.pix, src)
}

type view struct {
	img *image
}

type swapchain struct {
	dev     *Device
	desc    present.SwapchainDescriptor
	images  []*image
	next    uint32
	retired bool
}

// CreateSwapchain implements present.Device.
func (d *Device) CreateSwapchain(desc *present.SwapchainDescriptor) (present.Swapchain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail("swapchain"); err != nil {
		return nil, err
	}
	if !slices.Contains(d.caps.Formats, desc.Format) {
		return nil, fmt.Errorf("software: format %v: %w", desc.Format, present.ErrUnsupportedFormat)
	}
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return nil, fmt.Errorf("software: empty extent %dx%d", desc.Extent.Width, desc.Extent.Height)
	}
	n := desc.ImageCount
	if n < d.caps.MinImageCount || (d.caps.MaxImageCount > 0 && n > d.caps.MaxImageCount) {
		return nil, fmt.Errorf("software: image count %d outside [%d, %d]",
			n, d.caps.MinImageCount, d.caps.MaxImageCount)
	}
	if desc.Old != nil {
		old, ok := desc.Old.(*swapchain)
		if !ok || old.dev != d {
			d.violate("create swapchain: foreign old swapchain %T", desc.Old)
		} else {
			old.retired = true
		}
	}

	sc := &swapchain{dev: d, desc: *desc}
	sc.desc.Old = nil
	size := int(desc.Extent.Width) * int(desc.Extent.Height) * pixfmt.BytesPerPixel
	for i := uint32(0); i < n; i++ {
		sc.images = append(sc.images, &image{
			index:  i,
			width:  desc.Extent.Width,
			height: desc.Extent.Height,
			pix:    make([]byte, size),
			sc:     sc,
		})
	}
	d.live.Swapchains++
	d.live.Images += int(n)
	d.log.Debug("software swapchain created",
		"label", desc.Label,
		"width", desc.Extent.Width,
		"height", desc.Extent.Height,
		"images", n)
	return sc, nil
}

// DestroySwapchain implements present.Device.
func (d *Device) DestroySwapchain(s present.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sc, ok := s.(*swapchain)
	if !ok || sc.dev != d {
		d.violate("destroy swapchain: foreign handle %T", s)
		return
	}
	d.live.Swapchains--
	d.live.Images -= len(sc.images)
	for _, img := range sc.images {
		img.sc = nil
	}
	sc.images = nil
}

// CreateImageView implements present.Device.
func (d *Device) CreateImageView(i present.Image) (present.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail("view"); err != nil {
		return nil, err
	}
	img, ok := i.(*image)
	if !ok || img.sc == nil {
		d.violate("create view: foreign or released image %T", i)
		return nil, fmt.Errorf("software: create view: %w", ErrContract)
	}
	d.live.Views++
	return &view{img: img}, nil
}

// DestroyImageView implements present.Device.
func (d *Device) DestroyImageView(v present.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()

	iv, ok := v.(*view)
	if !ok {
		d.violate("destroy view: foreign handle %T", v)
		return
	}
	iv.img = nil
	d.live.Views--
}

// Images implements present.Swapchain.
func (sc *swapchain) Images() []present.Image {
	images := make([]present.Image, len(sc.images))
	for i, img := range sc.images {
		images[i] = img
	}
	return images
}

// AcquireNextImage implements present.Swapchain. Images are handed out in
// order; an image is available again once it has been presented.
func (sc *swapchain) AcquireNextImage(_ time.Duration, signal present.Semaphore) (uint32, error) {
	d := sc.dev
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroyed {
		return 0, errDestroyed
	}
	if sc.retired || sc.images == nil {
		d.violate("acquire on retired swapchain")
		return 0, present.ErrOutOfDate
	}
	if d.outOfDate {
		d.outOfDate = false
		return 0, present.ErrOutOfDate
	}
	if ext := d.surfaceExtent; ext != nil &&
		(ext.Width != sc.desc.Extent.Width || ext.Height != sc.desc.Extent.Height) {
		return 0, present.ErrOutOfDate
	}

	img := sc.images[sc.next]
	if img.acquired {
		return 0, fmt.Errorf("software: image %d: %w", img.index, present.ErrTimeout)
	}
	img.acquired = true
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	d.signal(signal, "acquire")

	if d.suboptimal {
		d.suboptimal = false
		return img.index, present.ErrSuboptimal
	}
	return img.index, nil
}

// Present implements present.Swapchain and delivers the image to the sink.
func (sc *swapchain) Present(index uint32, wait present.Semaphore) error {
	d := sc.dev
	d.mu.Lock()

	if int(index) >= len(sc.images) {
		d.violate("present: index %d of %d images", index, len(sc.images))
		d.mu.Unlock()
		return fmt.Errorf("software: present: %w", ErrContract)
	}
	img := sc.images[index]
	if !img.acquired {
		d.violate("present: image %d was not acquired", index)
		d.mu.Unlock()
		return fmt.Errorf("software: present: %w", ErrContract)
	}
	if err := d.consume(wait, "present"); err != nil {
		d.mu.Unlock()
		return err
	}
	img.acquired = false
	d.presented++

	sink := d.target.Sink
	frame := backend.Frame{
		Index:  index,
		Width:  img.width,
		Height: img.height,
		Format: sc.desc.Format,
		Pix:    img.pix,
	}
	if d.target.Surface != nil {
		frame.Surface = d.target.Surface.ID()
	}
	d.mu.Unlock()

	// The sink may call back into the compositor; deliver unlocked.
	if sink != nil {
		sink.PresentFrame(frame)
	}
	return nil
}
