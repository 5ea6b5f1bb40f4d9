//go:build js && wasm

package live

import (
	"encoding/json"
	"errors"
	"log"
	"syscall/js"
)

// Client handles WebSocket communication from the browser
type Client struct {
	ws      js.Value
	url     string
	funcs   map[string]js.Func
	onFrame func(ServerMessage)
	onReady func()
	onError func(error)
}

// NewClient creates a new live protocol client
func NewClient(url string) *Client {
	return &Client{url: url}
}

// Connect establishes WebSocket connection. Frames arrive as snappy
// binary messages.
func (c *Client) Connect() error {
	ws := js.Global().Get("WebSocket")
	if ws.IsUndefined() {
		return errors.New("live: WebSocket unavailable")
	}
	c.ws = ws.New(c.url + "?encoding=" + EncodingSnappy)
	c.ws.Set("binaryType", "arraybuffer")

	c.on("onopen", func(args []js.Value) {
		log.Println("[Live Client] Connected")
		if c.onReady != nil {
			c.onReady()
		}
	})

	c.on("onmessage", func(args []js.Value) {
		buffer := js.Global().Get("Uint8Array").New(args[0].Get("data"))
		data := make([]byte, buffer.Get("length").Int())
		js.CopyBytesToGo(data, buffer)

		_, _, payload, err := DecodeBinary(data)
		if err != nil {
			c.fail(err)
			return
		}
		var msg ServerMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.fail(err)
			return
		}
		if c.onFrame != nil {
			c.onFrame(msg)
		}
	})

	c.on("onerror", func(args []js.Value) {
		c.fail(errors.New("live: websocket error"))
	})

	c.on("onclose", func(args []js.Value) {
		log.Println("[Live Client] Disconnected")
	})
	return nil
}

func (c *Client) on(event string, fn func(args []js.Value)) {
	f := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		fn(args)
		return nil
	})
	if c.funcs == nil {
		c.funcs = make(map[string]js.Func)
	}
	c.funcs[event] = f
	c.ws.Set(event, f)
}

func (c *Client) fail(err error) {
	log.Println("[Live Client]", err)
	if c.onError != nil {
		c.onError(err)
	}
}

// Send sends a message to the server
func (c *Client) Send(msg ClientMessage) error {
	if c.ws.IsUndefined() || c.ws.IsNull() {
		return errors.New("live: not connected")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data := EncodeBinary(FrameEvent, 0, payload)
	arrayBuffer := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arrayBuffer, data)
	c.ws.Call("send", arrayBuffer)
	return nil
}

// Close closes the WebSocket connection
func (c *Client) Close() {
	if c.ws.IsNull() || c.ws.IsUndefined() {
		return
	}
	// handlers must be detached before release
	for event, f := range c.funcs {
		c.ws.Set(event, js.Null())
		f.Release()
	}
	c.ws.Call("close")
	c.funcs = nil
}

// OnFrame sets the handler for server messages
func (c *Client) OnFrame(handler func(ServerMessage)) {
	c.onFrame = handler
}

// OnReady sets the ready handler
func (c *Client) OnReady(handler func()) {
	c.onReady = handler
}

// OnError sets the error handler
func (c *Client) OnError(handler func(error)) {
	c.onError = handler
}
