// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package native

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/layershell/internal/pixfmt"
	"github.com/gogpu/layershell/present"
)

// image is a swapchain texture with its upload staging buffer.
type image struct {
	index   uint32
	texture hal.Texture
	view    hal.TextureView
	width   uint32
	height  uint32
	staging []byte
}

// stage converts RGBA rows into the BGRA staging buffer.
func (img *image) stage(src []byte, extent gputypes.Extent3D) error {
	if extent.Width != img.width || extent.Height != img.height {
		return fmt.Errorf("extent %dx%d does not match texture %dx%d",
			extent.Width, extent.Height, img.width, img.height)
	}
	if img.staging == nil {
		img.staging = make([]byte, len(src))
	}
	return pixfmt.SwapRB(img.staging, src)
}

type view struct {
	img *image
	raw hal.TextureView
}

type swapchain struct {
	dev    *Device
	desc   present.SwapchainDescriptor
	images []*image
	next   uint32
	stale  bool
}

// CreateSwapchain implements present.Device.
func (d *Device) CreateSwapchain(desc *present.SwapchainDescriptor) (present.Swapchain, error) {
	if desc.Format != d.format {
		return nil, fmt.Errorf("native: format %v: %w", desc.Format, present.ErrUnsupportedFormat)
	}
	if desc.Extent.Width == 0 || desc.Extent.Height == 0 {
		return nil, errors.New("native: empty swapchain extent")
	}

	sc := &swapchain{dev: d, desc: *desc}
	sc.desc.Old = nil
	for i := uint32(0); i < desc.ImageCount; i++ {
		tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
			Label: fmt.Sprintf("%s swapchain image %d", desc.Label, i),
			Size: hal.Extent3D{
				Width:              desc.Extent.Width,
				Height:             desc.Extent.Height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        desc.Format,
			Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			d.DestroySwapchain(sc)
			return nil, fmt.Errorf("native: swapchain image %d: %w", i, err)
		}
		sc.images = append(sc.images, &image{
			index:   i,
			texture: tex,
			width:   desc.Extent.Width,
			height:  desc.Extent.Height,
		})
	}
	d.log.Debug("native swapchain created",
		"label", desc.Label,
		"width", desc.Extent.Width,
		"height", desc.Extent.Height,
		"images", desc.ImageCount)
	return sc, nil
}

// DestroySwapchain implements present.Device.
func (d *Device) DestroySwapchain(s present.Swapchain) {
	sc, ok := s.(*swapchain)
	if !ok {
		return
	}
	for _, img := range sc.images {
		d.device.DestroyTexture(img.texture)
		img.texture = nil
	}
	sc.images = nil
}

// CreateImageView implements present.Device.
func (d *Device) CreateImageView(i present.Image) (present.ImageView, error) {
	img, ok := i.(*image)
	if !ok {
		return nil, fmt.Errorf("native: view of foreign image %T", i)
	}
	raw, err := d.device.CreateTextureView(img.texture, &hal.TextureViewDescriptor{
		Label:           fmt.Sprintf("swapchain view %d", img.index),
		Format:          gputypes.TextureFormatUndefined,
		Dimension:       gputypes.TextureViewDimensionUndefined,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    0,
		MipLevelCount:   0,
		BaseArrayLayer:  0,
		ArrayLayerCount: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create view: %w", err)
	}
	img.view = raw
	return &view{img: img, raw: raw}, nil
}

// DestroyImageView implements present.Device.
func (d *Device) DestroyImageView(v present.ImageView) {
	iv, ok := v.(*view)
	if !ok || iv.raw == nil {
		return
	}
	d.device.DestroyTextureView(iv.raw)
	if iv.img.view == iv.raw {
		iv.img.view = nil
	}
	iv.raw = nil
}

// Images implements present.Swapchain.
func (sc *swapchain) Images() []present.Image {
	images := make([]present.Image, len(sc.images))
	for i, img := range sc.images {
		images[i] = img
	}
	return images
}

// AcquireNextImage implements present.Swapchain. Images rotate in order;
// the engine's per-image fence wait keeps an image from being rewritten
// while its upload is in flight.
func (sc *swapchain) AcquireNextImage(_ time.Duration, signal present.Semaphore) (uint32, error) {
	if sc.stale {
		return 0, present.ErrOutOfDate
	}
	index := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	if sem, ok := signal.(*semaphore); ok {
		sem.signaled = true
	}
	return index, nil
}

// Present implements present.Swapchain.
func (sc *swapchain) Present(index uint32, wait present.Semaphore) error {
	if int(index) >= len(sc.images) {
		return fmt.Errorf("native: present index %d of %d images", index, len(sc.images))
	}
	if sem, ok := wait.(*semaphore); ok {
		sem.signaled = false
	}

	img := sc.images[index]
	err := sc.dev.compositor.PresentTexture(Presentation{
		Target:  sc.dev.target,
		Index:   index,
		Texture: img.texture,
		View:    img.view,
		Width:   img.width,
		Height:  img.height,
		Format:  sc.desc.Format,
	})
	if errors.Is(err, present.ErrOutOfDate) {
		sc.stale = true
	}
	return err
}
