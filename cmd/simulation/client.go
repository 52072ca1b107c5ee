package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

var (
	botColor    = color.New(color.FgCyan)
	metaColor   = color.New(color.FgYellow)
	eventColor  = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed, color.Bold)
	promptColor = color.New(color.FgMagenta)
)

type client struct {
	opts options
	conn *websocket.Conn
	http *http.Client

	mu        sync.Mutex
	token     string
	lastItems []map[string]any
}

func run(ctx context.Context, opts options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	endpoint, err := url.Parse(opts.wsURL)
	if err != nil {
		return fmt.Errorf("invalid --ws: %w", err)
	}
	if opts.token != "" {
		q := endpoint.Query()
		q.Set("session_token", opts.token)
		endpoint.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	c := &client{opts: opts, conn: conn, http: &http.Client{Timeout: 2 * time.Minute}, token: opts.token}

	readDone := make(chan error, 1)
	go func() { readDone <- c.readLoop() }()

	input := io.Reader(os.Stdin)
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return c.closeGracefully()
		case err := <-readDone:
			return err
		case line, ok := <-lines:
			if !ok {
				// Give the server time to answer the last scripted line.
				if opts.script != "" {
					select {
					case <-time.After(5 * time.Second):
					case <-ctx.Done():
					}
				}
				return c.closeGracefully()
			}
			quit, err := c.handleLine(ctx, strings.TrimSpace(line))
			if err != nil {
				errorColor.Printf("! %v\n", err)
			}
			if quit {
				return c.closeGracefully()
			}
		}
	}
}

func (c *client) closeGracefully() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	return c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func (c *client) send(payload map[string]any) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	if c.opts.verbose {
		promptColor.Printf(">> %s\n", data)
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) handleLine(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, c.send(map[string]any{"type": "message", "content": line})
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/quit":
		return true, nil
	case "/ping":
		return false, c.send(map[string]any{"type": "ping"})
	case "/reset":
		return false, c.send(map[string]any{"type": "reset_session"})
	case "/opt":
		return false, c.send(map[string]any{"type": "quick_option", "content": strings.TrimSpace(strings.TrimPrefix(line, "/opt"))})
	case "/pick":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: /pick <from|to> <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return false, fmt.Errorf("candidate index: %w", err)
		}
		return false, c.send(map[string]any{"type": "address_selected", "address_type": args[0], "index": n})
	case "/none":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /none <from|to>")
		}
		return false, c.send(map[string]any{"type": "address_selected", "address_type": args[0], "reject_all": true})
	case "/confirm":
		if len(args) < 1 {
			return false, fmt.Errorf("usage: /confirm <from|to> [no]")
		}
		confirmed := len(args) < 2 || args[1] != "no"
		return false, c.send(map[string]any{"type": "address_confirmed", "address_type": args[0], "confirmed": confirmed})
	case "/upload":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /upload <path>")
		}
		return false, c.upload(ctx, args[0])
	case "/items":
		c.mu.Lock()
		staged := c.lastItems
		c.mu.Unlock()
		return false, c.send(map[string]any{"type": "items_confirmed", "items": staged})
	case "/submit":
		payload := map[string]any{"type": "submit_quote"}
		if len(args) > 0 {
			payload["email"] = args[0]
		}
		if len(args) > 1 {
			payload["phone"] = args[1]
		}
		return false, c.send(payload)
	}
	return false, fmt.Errorf("unknown command %s", cmd)
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ImageID string           `json:"image_id"`
		Status  string           `json:"status"`
		Items   []map[string]any `json:"items"`
	} `json:"data"`
}

// upload posts the photo over REST, then tells the chat which items came back.
func (c *client) upload(ctx context.Context, path string) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return fmt.Errorf("no session yet")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := w.WriteField("session_token", token); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.apiURL+"/items/upload", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var out uploadResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("upload: unexpected response %s", raw)
	}
	if !out.Success {
		return fmt.Errorf("upload failed (%d): %s", resp.StatusCode, out.Message)
	}

	eventColor.Printf("* recognized %d item(s) in %s\n", len(out.Data.Items), out.Data.ImageID)
	return c.send(map[string]any{"type": "image_uploaded", "image_id": out.Data.ImageID, "items": out.Data.Items})
}

func (c *client) readLoop() error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		if c.opts.verbose {
			promptColor.Printf("<< %s\n", data)
		}
		c.render(data)
	}
}

func (c *client) render(data []byte) {
	var ev map[string]any
	if err := sonic.Unmarshal(data, &ev); err != nil {
		errorColor.Printf("! undecodable frame: %s\n", data)
		return
	}

	switch ev["type"] {
	case "session":
		token, _ := ev["session_token"].(string)
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
		eventColor.Printf("* session %s (resumed=%v)\n", token, ev["resumed"])
	case "session_reset":
		token, _ := ev["session_token"].(string)
		c.mu.Lock()
		c.token = token
		c.lastItems = nil
		c.mu.Unlock()
		eventColor.Println("* session reset")
	case "text_delta":
		botColor.Print(ev["content"])
	case "text_done":
		fmt.Println()
	case "metadata":
		c.renderMetadata(ev)
	case "message_history":
		msgs, _ := ev["messages"].([]any)
		eventColor.Printf("* %d earlier message(s)\n", len(msgs))
		for _, m := range msgs {
			if mm, ok := m.(map[string]any); ok {
				fmt.Printf("  [%v] %v\n", mm["role"], mm["content"])
			}
		}
	case "items_recognized":
		c.stageItems(ev["current_items"])
		eventColor.Printf("* staged items: %s\n", describeItems(ev["current_items"]))
	case "items_confirmed":
		eventColor.Printf("* items confirmed: %s (total %v)\n", describeItems(ev["items"]), ev["total_count"])
	case "address_selected":
		eventColor.Printf("* %v address: %v\n", ev["address_type"], ev["state"])
		if cands, ok := ev["candidates"].([]any); ok {
			for i, cand := range cands {
				if cm, ok := cand.(map[string]any); ok {
					fmt.Printf("  %d) %v\n", i, cm["formatted_address"])
				}
			}
		}
	case "address_confirmed":
		eventColor.Printf("* %v address confirmed=%v\n", ev["address_type"], ev["confirmed"])
	case "quote_submitted":
		eventColor.Printf("* quote %v submitted: %v\n", ev["quote_id"], ev["message"])
	case "quote_status":
		eventColor.Printf("* quote %v is now %v\n", ev["quote_id"], ev["status"])
	case "quote_error":
		errorColor.Printf("! %v: %v %v\n", ev["code"], ev["message"], ev["missing_fields"])
	case "error":
		errorColor.Printf("! %v: %v\n", ev["code"], ev["message"])
	case "pong":
		eventColor.Println("* pong")
	default:
		fmt.Printf("%s\n", data)
	}
}

func (c *client) renderMetadata(ev map[string]any) {
	if p, ok := ev["current_phase"]; ok {
		metaColor.Printf("  phase=%v", p)
	}
	if comp, ok := ev["completion"].(map[string]any); ok {
		metaColor.Printf(" completion=%v", comp["completion_rate"])
	}
	if opts, ok := ev["quick_options"].([]any); ok {
		multi := ""
		if ev["multi_select"] == true {
			multi = " (multi)"
		}
		metaColor.Printf(" options%s=%v", multi, opts)
	}
	if ui, ok := ev["ui_component"].(map[string]any); ok {
		metaColor.Printf(" ui=%v", ui["type"])
	}
	fmt.Println()
}

func (c *client) stageItems(raw any) {
	list, _ := raw.([]any)
	staged := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			staged = append(staged, m)
		}
	}
	c.mu.Lock()
	c.lastItems = staged
	c.mu.Unlock()
}

func describeItems(raw any) string {
	list, _ := raw.([]any)
	parts := make([]string, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			parts = append(parts, fmt.Sprintf("%v×%v", m["name"], m["count"]))
		}
	}
	return strings.Join(parts, ", ")
}
