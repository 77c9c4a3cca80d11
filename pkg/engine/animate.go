package engine

import (
	"github.com/go-drift/motion/pkg/animation"
	"github.com/go-drift/motion/pkg/cell"
)

// Animate runs anim on the cell behind target, replacing any animation
// already running on that cell. The cell stays alive until the run ends.
// onDone, when set, runs on the control thread with the final status.
func (e *Engine) Animate(target *cell.Binding, anim animation.Animation, onDone func(animation.Status)) error {
	if target == nil || anim == nil {
		return nil
	}
	if e.closed.Load() {
		return ErrClosed
	}
	c := target.Cell()
	if !e.post("engine.Animate", c.CellID(), func() { e.startAnimation(c, anim, onDone) }) {
		return ErrClosed
	}
	return nil
}

// CancelAnimation stops the animation running on target's cell, if any.
func (e *Engine) CancelAnimation(target *cell.Binding) {
	if target == nil || e.closed.Load() {
		return
	}
	id := target.CellID()
	e.dispatch.ScheduleOnRender(func() {
		if ctrl, ok := e.animations[id]; ok {
			ctrl.Stop()
		}
	})
}

// Animating returns the number of cells with a running animation. Render
// thread only.
func (e *Engine) Animating() int { return len(e.animations) }

func (e *Engine) startAnimation(c *cell.Cell, anim animation.Animation, onDone func(animation.Status)) {
	if c.Removed() {
		return
	}
	b := e.render.Binding(c)
	if b == nil {
		return
	}
	id := c.CellID()
	ctrl, ok := e.animations[id]
	if !ok {
		ctrl = animation.NewController(e, b)
	}
	c.Retain()
	ctrl.Animate(anim, func(s animation.Status) {
		if !ctrl.IsAnimating() && e.animations[id] == ctrl {
			delete(e.animations, id)
		}
		c.Release()
		if onDone != nil {
			e.dispatch.ScheduleOnControl(func() { onDone(s) })
		}
	})
	if ctrl.IsAnimating() {
		e.animations[id] = ctrl
	}
}
