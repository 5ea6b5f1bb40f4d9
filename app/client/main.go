//go:build js && wasm
// +build js,wasm

// Command client runs both graph views in the browser. With
// window.DUALGRAPH_LIVE set it mirrors a dualgraph serve process instead of
// laying the graph out locally.
package main

import (
	"context"
	"strconv"
	"strings"
	"syscall/js"

	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/pkg/debug"
	"github.com/recera/dualgraph/pkg/graph"
	"github.com/recera/dualgraph/pkg/live"
	"github.com/recera/dualgraph/pkg/render"
	"github.com/recera/dualgraph/pkg/shell"
)

var (
	document js.Value
	window   js.Value
	log      logging.Logger
)

func main() {
	document = js.Global().Get("document")
	window = js.Global().Get("window")
	log = debug.NewConsole(logging.InfoLevel)
	if window.Get("DUALGRAPH_DEBUG").Truthy() {
		log.SetLevel(logging.DebugLevel)
		debug.EnableLogging()
	}

	log.Info("dualgraph client starting")
	initApp()

	// Keep the WASM runtime alive
	select {}
}

func initApp() {
	if document.Get("readyState").String() != "loading" {
		onReady()
		return
	}
	document.Call("addEventListener", "DOMContentLoaded", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		onReady()
		return nil
	}))
}

func onReady() {
	stage := document.Call("getElementById", "stage")
	if stage.IsNull() {
		log.Error("could not find #stage element")
		return
	}
	if url := window.Get("DUALGRAPH_LIVE"); url.Truthy() {
		startRemote(stage, url.String())
		return
	}
	startLocal(stage)
}

func stageSize(stage js.Value) (float64, float64) {
	return stage.Get("clientWidth").Float(), stage.Get("clientHeight").Float()
}

// stagePoint converts a mouse event to stage coordinates
func stagePoint(stage, ev js.Value) (float64, float64) {
	rect := stage.Call("getBoundingClientRect")
	return ev.Get("clientX").Float() - rect.Get("left").Float(),
		ev.Get("clientY").Float() - rect.Get("top").Float()
}

// place positions a pane element over its box; an empty box hides it
func place(el js.Value, sp shell.Split, kind shell.ViewKind) {
	box := sp.Pane(kind)
	style := el.Get("style")
	if box.Empty() {
		style.Set("display", "none")
		return
	}
	sz := box.Size()
	style.Set("display", "block")
	style.Set("left", px(box.Min.X))
	style.Set("width", px(sz.X))
	style.Set("height", px(sz.Y))
	if el.Get("tagName").String() == "CANVAS" {
		if el.Get("width").Int() != int(sz.X) {
			el.Set("width", int(sz.X))
		}
		if el.Get("height").Int() != int(sz.Y) {
			el.Set("height", int(sz.Y))
		}
	}
}

func px(v float64) string {
	return strconv.Itoa(int(v)) + "px"
}

func loadDataset() graph.Dataset {
	raw := window.Get("DUALGRAPH_DATA")
	if !raw.Truthy() {
		log.Warn("no DUALGRAPH_DATA, using empty graph")
		return graph.Empty()
	}
	ds, err := graph.Decode(strings.NewReader(raw.String()))
	if err == nil {
		err = ds.Validate()
	}
	if err != nil {
		log.Warn("using empty graph", logging.Err(err))
		return graph.Empty()
	}
	log.Info("dataset loaded", logging.Int("nodes", len(ds.Nodes)), logging.Int("links", len(ds.Links)))
	return ds
}

// startLocal runs the shell in the page and paints both canvases on every
// animation frame
func startLocal(stage js.Value) {
	c2 := document.Call("getElementById", "view2d")
	c3 := document.Call("getElementById", "view3d")

	opts := shell.DefaultOptions()
	opts.Supports3D = func() bool {
		_, ok := render.NewCanvasSurface(c3)
		return ok
	}
	w, h := stageSize(stage)
	flags := shell.Flags{Flags: render.Flags{LinkMode: render.LinkCurved}}
	s := shell.New(loadDataset(), w, h, flags, opts, shell.Hooks{
		OnNodeClick: func(view shell.ViewKind, n graph.Node) {
			showNode(view, n)
		},
		OnTaskPanic: func(task string, err interface{}) {
			log.Error("task panicked", logging.Task(task), logging.Any("panic", err))
		},
	})
	s.Start(context.Background())

	on(stage, "click", func(ev js.Value) {
		x, y := stagePoint(stage, ev)
		s.Click(x, y)
	})
	on(stage, "wheel", func(ev js.Value) {
		ev.Call("preventDefault")
		factor := 1.1
		if ev.Get("deltaY").Float() > 0 {
			factor = 1 / factor
		}
		x, y := stagePoint(stage, ev)
		if s.Split().ViewAt(x) == shell.View3D {
			s.Zoom3D(1 / factor)
		} else {
			s.Zoom2D(x, y, factor)
		}
	})
	on(window, "resize", func(js.Value) {
		s.RequestResize(stageSize(stage))
	})
	bindDivider(stage, s.RequestDivider)
	bindToolbar(s.Flags, s.SetFlags, s.ToggleFullscreen)

	var frame js.Func
	frame = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		sp := s.Split()
		place(c2, sp, shell.View2D)
		place(c3, sp, shell.View3D)
		placeDivider(sp)
		if surf, ok := render.NewCanvasSurface(c2); ok && !sp.Pane(shell.View2D).Empty() {
			render.Paint2D(surf, s.Frame2D())
		}
		if surf, ok := render.NewCanvasSurface(c3); ok && !sp.Pane(shell.View3D).Empty() {
			render.Paint3D(surf, s.Frame3D())
		}
		window.Call("requestAnimationFrame", frame)
		return nil
	})
	window.Call("requestAnimationFrame", frame)
}

// startRemote mirrors a live server. Frames arrive painted as SVG and
// every interaction is forwarded.
func startRemote(stage js.Value, url string) {
	p2 := document.Call("getElementById", "pane2d")
	p3 := document.Call("getElementById", "pane3d")
	client := live.NewClient(url)

	var flags shell.Flags
	var split shell.Split
	send := func(msg live.ClientMessage) {
		if err := client.Send(msg); err != nil {
			log.Warn("send failed", logging.String("type", msg.Type), logging.Err(err))
		}
	}

	client.OnReady(func() {
		w, h := stageSize(stage)
		send(live.ClientMessage{Type: live.MsgResize, Width: w, Height: h})
	})
	client.OnError(func(err error) {
		log.Error("live connection error", logging.Err(err))
	})
	client.OnFrame(func(msg live.ServerMessage) {
		switch msg.Type {
		case live.MsgFrame:
			if msg.Split != nil {
				split = *msg.Split
				place(p2, *msg.Split, shell.View2D)
				place(p3, *msg.Split, shell.View3D)
				placeDivider(*msg.Split)
			}
			if msg.Flags != nil {
				flags = *msg.Flags
			}
			p2.Set("innerHTML", msg.View2D)
			p3.Set("innerHTML", msg.View3D)
		case live.MsgNode:
			if msg.Node != nil {
				showNode(msg.View, *msg.Node)
			}
		case live.MsgError:
			log.Warn("server rejected message", logging.String("error", msg.Error))
		}
	})
	if err := client.Connect(); err != nil {
		log.Error("connect failed", logging.Err(err))
		return
	}

	on(stage, "click", func(ev js.Value) {
		x, y := stagePoint(stage, ev)
		send(live.ClientMessage{Type: live.MsgClick, X: x, Y: y})
	})
	on(stage, "wheel", func(ev js.Value) {
		ev.Call("preventDefault")
		factor := 1.1
		if ev.Get("deltaY").Float() > 0 {
			factor = 1 / factor
		}
		x, y := stagePoint(stage, ev)
		msg := live.ClientMessage{Type: live.MsgZoom, X: x, Y: y, Factor: factor, View: shell.View2D}
		if split.ViewAt(x) == shell.View3D {
			msg.View, msg.Factor = shell.View3D, 1/factor
		}
		send(msg)
	})
	on(window, "resize", func(js.Value) {
		w, h := stageSize(stage)
		send(live.ClientMessage{Type: live.MsgResize, Width: w, Height: h})
	})
	bindDivider(stage, func(x float64) {
		send(live.ClientMessage{Type: live.MsgDivider, X: x})
	})
	bindToolbar(
		func() shell.Flags { return flags },
		func(f shell.Flags) {
			flags = f
			send(live.ClientMessage{Type: live.MsgFlags, Flags: &f})
		},
		func(kind shell.ViewKind) {
			send(live.ClientMessage{Type: live.MsgFullscreen, View: kind})
		},
	)
}

func on(target js.Value, event string, fn func(ev js.Value)) {
	target.Call("addEventListener", event, js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		fn(args[0])
		return nil
	}))
}

func placeDivider(sp shell.Split) {
	div := document.Call("getElementById", "divider")
	if div.IsNull() {
		return
	}
	if sp.Fullscreen != "" {
		div.Get("style").Set("display", "none")
		return
	}
	div.Get("style").Set("display", "block")
	div.Get("style").Set("left", px(sp.Divider()-2))
}

// bindDivider drags #divider and reports the new x
func bindDivider(stage js.Value, moveTo func(x float64)) {
	div := document.Call("getElementById", "divider")
	if div.IsNull() {
		return
	}
	dragging := false
	on(div, "mousedown", func(ev js.Value) {
		ev.Call("preventDefault")
		dragging = true
	})
	on(window, "mousemove", func(ev js.Value) {
		if dragging {
			x, _ := stagePoint(stage, ev)
			moveTo(x)
		}
	})
	on(window, "mouseup", func(js.Value) {
		dragging = false
	})
}

// bindToolbar wires buttons carrying data-flag or data-fullscreen
func bindToolbar(get func() shell.Flags, set func(shell.Flags), fullscreen func(shell.ViewKind)) {
	buttons := document.Call("querySelectorAll", "[data-flag], [data-fullscreen]")
	for i := 0; i < buttons.Length(); i++ {
		btn := buttons.Index(i)
		on(btn, "click", func(ev js.Value) {
			ev.Call("stopPropagation")
			if v := btn.Get("dataset").Get("fullscreen"); v.Truthy() {
				fullscreen(shell.ViewKind(v.String()))
				return
			}
			f := get()
			if toggleFlag(&f, btn.Get("dataset").Get("flag").String()) {
				set(f)
			}
		})
	}
}

func toggleFlag(f *shell.Flags, name string) bool {
	switch name {
	case "bidirectional":
		f.Bidirectional = !f.Bidirectional
	case "altShapes":
		f.AltShapes = !f.AltShapes
	case "showLinkTexts":
		f.ShowLinkTexts = !f.ShowLinkTexts
	case "showMainValues":
		f.ShowMainValues = !f.ShowMainValues
	case "showInOutValues":
		f.ShowInOutValues = !f.ShowInOutValues
	case "rotating":
		f.Rotating = !f.Rotating
	case "linkMode":
		if f.LinkMode == render.LinkOffset {
			f.LinkMode = render.LinkCurved
		} else {
			f.LinkMode = render.LinkOffset
		}
	default:
		return false
	}
	return true
}

func showNode(view shell.ViewKind, n graph.Node) {
	log.Info("node clicked", logging.View(string(view)), logging.String("id", n.ID))
	el := document.Call("getElementById", "details")
	if el.IsNull() {
		return
	}
	label := n.Label
	if label == "" {
		label = n.ID
	}
	lines := append([]string{label + " (" + string(n.Type) + ")"}, graph.DisplayValue(n, graph.DisplayOptions{ShowMain: true, ShowInOut: true})...)
	el.Set("textContent", strings.Join(lines, "  "))
}
