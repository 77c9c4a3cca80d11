// Package testing provides deterministic test drivers for the motion
// engine.
//
// # Quick Start
//
// Create a tester, set up cells and mappers from the control side, and
// pump the queues and frames by hand:
//
//	func TestOpacity(t *testing.T) {
//	    tester := motiontest.NewEngineTesterWithT(t)
//	    e := tester.Engine()
//
//	    progress, _ := e.MakeMutable(0.0)
//	    e.StartMapper(updater, []any{progress}, nil, nil)
//	    tester.Flush()
//
//	    tester.OnRender(func(e *engine.Engine) {
//	        e.RenderRuntime().Binding(progress).Set(1.0)
//	    })
//	    tester.Pump()
//	}
//
// # Frames and Time
//
// [ManualFrames] stands in for the display link: frames are delivered
// only by Pump, PumpFrames or PumpAndSettle. [FakeClock] controls the
// time seen by frame tracing and animations:
//
//	tester.Clock().Advance(100 * time.Millisecond)
//	tester.Pump()
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import motiontest "github.com/go-drift/motion/pkg/testing"
package testing
