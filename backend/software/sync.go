// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"fmt"
	"slices"
	"time"

	"github.com/gogpu/layershell/present"
)

// semaphore is a binary host semaphore. A signal must be consumed by
// exactly one wait before it can be signaled again.
type semaphore struct {
	id       int
	signaled bool
}

// fence is a host fence. Work completes synchronously in Submit, so a
// fence is only left unsignaled by ResetFence or while the device hangs.
type fence struct {
	id       int
	signaled bool
	pending  bool
}

// CreateSemaphore implements present.Device.
func (d *Device) CreateSemaphore() (present.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail("semaphore"); err != nil {
		return nil, err
	}
	d.nextID++
	d.live.Semaphores++
	return &semaphore{id: d.nextID}, nil
}

// DestroySemaphore implements present.Device.
func (d *Device) DestroySemaphore(s present.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := s.(*semaphore); !ok {
		d.violate("destroy semaphore: foreign handle %T", s)
		return
	}
	d.live.Semaphores--
}

// CreateFence implements present.Device.
func (d *Device) CreateFence(signaled bool) (present.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail("fence"); err != nil {
		return nil, err
	}
	d.nextID++
	d.live.Fences++
	return &fence{id: d.nextID, signaled: signaled}, nil
}

// DestroyFence implements present.Device.
func (d *Device) DestroyFence(f present.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fe, ok := f.(*fence)
	if !ok {
		d.violate("destroy fence: foreign handle %T", f)
		return
	}
	if fe.pending {
		// Only a hung device has pending fences; its work is abandoned.
		d.pending = slices.DeleteFunc(d.pending, func(p *fence) bool { return p == fe })
		fe.pending = false
	}
	d.live.Fences--
}

// WaitFence implements present.Device. While the device hangs it blocks
// until Resume or the timeout.
func (d *Device) WaitFence(f present.Fence, timeout time.Duration) error {
	d.mu.Lock()
	fe, ok := f.(*fence)
	if !ok {
		d.violate("wait fence: foreign handle %T", f)
		d.mu.Unlock()
		return fmt.Errorf("software: wait fence: %w", ErrContract)
	}
	if fe.signaled {
		d.mu.Unlock()
		return nil
	}
	if !fe.pending {
		// Nothing submitted will ever signal it.
		d.violate("wait fence %d: unsignaled and not submitted", fe.id)
		d.mu.Unlock()
		return fmt.Errorf("software: wait fence: %w", ErrContract)
	}
	resume := d.resume
	d.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-resume:
		return nil
	case <-timer.C:
		return fmt.Errorf("software: fence %d: %w", fe.id, present.ErrTimeout)
	}
}

// ResetFence implements present.Device.
func (d *Device) ResetFence(f present.Fence) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fe, ok := f.(*fence)
	if !ok {
		d.violate("reset fence: foreign handle %T", f)
		return fmt.Errorf("software: reset fence: %w", ErrContract)
	}
	if fe.pending {
		d.violate("reset fence %d: submission still pending", fe.id)
		return fmt.Errorf("software: reset fence: %w", ErrContract)
	}
	fe.signaled = false
	return nil
}

// signal marks s signaled. Signaling a semaphore nobody waited on is a
// violation.
func (d *Device) signal(s present.Semaphore, op string) {
	sem, ok := s.(*semaphore)
	if !ok {
		d.violate("%s: foreign semaphore %T", op, s)
		return
	}
	if sem.signaled {
		d.violate("%s: semaphore %d already signaled", op, sem.id)
	}
	sem.signaled = true
}

// consume waits on s, which must already be signaled since all work on
// this device completes in order.
func (d *Device) consume(s present.Semaphore, op string) error {
	sem, ok := s.(*semaphore)
	if !ok {
		d.violate("%s: foreign semaphore %T", op, s)
		return fmt.Errorf("software: %s: %w", op, ErrContract)
	}
	if !sem.signaled {
		d.violate("%s: wait on unsignaled semaphore %d", op, sem.id)
		return fmt.Errorf("software: %s: %w", op, ErrContract)
	}
	sem.signaled = false
	return nil
}
