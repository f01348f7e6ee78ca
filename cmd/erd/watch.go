package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"oss.terrastruct.com/erd/erdlib"
	"oss.terrastruct.com/erd/erdrenderers/erdsvg"
	"oss.terrastruct.com/erd/erdtarget"
	"oss.terrastruct.com/erd/lib/xbrowser"
	"oss.terrastruct.com/erd/lib/xhttp"
	"oss.terrastruct.com/erd/lib/xmain"
)

//go:embed static
var staticFS embed.FS

const (
	DRAG_START = "drag-start"
	DRAG       = "drag"
	DRAG_END   = "drag-end"
)

type watcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ms *xmain.State
	r  *renderer
	// inputPath is "" when the source is not a file.
	inputPath string

	loadCh chan struct{}

	fw               *fsnotify.Watcher
	l                net.Listener
	staticFileServer http.Handler

	wsclientsMu sync.Mutex
	closing     bool
	wsclientsWG sync.WaitGroup
	wsclients   map[*wsclient]struct{}

	errMu sync.Mutex
	err   error

	resMu sync.Mutex
	res   *renderResult
}

type renderResult struct {
	Err string `json:"err"`
	SVG string `json:"svg"`
}

// dragMessage is sent by the page for every pointer event on a table.
type dragMessage struct {
	Type  string  `json:"type"`
	Table string  `json:"table"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

func newWatcher(ctx context.Context, ms *xmain.State, r *renderer, inputPath string) (*watcher, error) {
	ctx, cancel := context.WithCancel(ctx)

	w := &watcher{
		ctx:    ctx,
		cancel: cancel,

		ms:        ms,
		r:         r,
		inputPath: inputPath,

		loadCh:    make(chan struct{}, 1),
		wsclients: make(map[*wsclient]struct{}),
	}
	r.driver.OnRender(w.onRender)

	err := w.init()
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (w *watcher) init() error {
	if w.inputPath != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		w.fw = fw
	}
	sfs, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	w.staticFileServer = http.FileServer(http.FS(sfs))
	return w.listen()
}

func (w *watcher) run() error {
	defer w.close()

	w.goFunc(w.watchLoop)
	w.goFunc(w.loadLoop)
	w.goServe()

	w.wg.Wait()
	w.close()
	return w.err
}

func (w *watcher) close() {
	w.wsclientsMu.Lock()
	if w.closing {
		w.wsclientsMu.Unlock()
		return
	}
	w.closing = true
	w.wsclientsMu.Unlock()

	w.cancel()
	if w.fw != nil {
		err := w.fw.Close()
		w.setErr(err)
	}
	if w.l != nil {
		err := w.l.Close()
		w.setErr(err)
	}

	w.wsclientsWG.Wait()
}

func (w *watcher) setErr(err error) {
	w.errMu.Lock()
	if w.err == nil && !errors.Is(err, context.Canceled) && !errors.Is(err, net.ErrClosed) {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *watcher) goFunc(fn func(context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.cancel()

		err := fn(w.ctx)
		w.setErr(err)
	}()
}

// watchLoop requests a reload whenever the input file settles after a change. Editors
// emit bursts of events for one save, so events are batched for 32ms.
func (w *watcher) watchLoop(ctx context.Context) error {
	w.ms.Log.Info.Printf("loading %v...", w.r.inputName)
	w.requestLoad()
	if w.fw == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	lastModified, err := w.ensureAddWatch(ctx)
	if err != nil {
		return err
	}

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	for {
		select {
		case <-pollTicker.C:
			// fsnotify can miss the event that makes a path unwatchable.
			mt, err := w.ensureAddWatch(ctx)
			if err != nil {
				return err
			}
			if !mt.Equal(lastModified) {
				lastModified = mt
				w.requestLoad()
			}
		case ev, ok := <-w.fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			w.ms.Log.Debug.Printf("received file system event %v", ev)
			mt, err := w.ensureAddWatch(ctx)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod {
				if mt.Equal(lastModified) {
					continue
				}
				lastModified = mt
			}
			eatBurstTimer.Reset(time.Millisecond * 32)
		case <-eatBurstTimer.C:
			w.ms.Log.Info.Printf("detected change in %v: reloading...", w.inputPath)
			w.requestLoad()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			w.ms.Log.Error.Printf("fsnotify error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *watcher) requestLoad() {
	select {
	case w.loadCh <- struct{}{}:
	default:
	}
}

func (w *watcher) ensureAddWatch(ctx context.Context) (time.Time, error) {
	interval := time.Second
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := w.addWatch()
		if err == nil {
			return mt, nil
		}
		w.ms.Log.Error.Printf("failed to watch inputPath %q: %v (retrying in %v)", w.inputPath, err, interval)

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second*16 {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (w *watcher) addWatch() (time.Time, error) {
	err := w.fw.Add(w.inputPath)
	if err != nil {
		return time.Time{}, err
	}
	d, err := os.Stat(w.inputPath)
	if err != nil {
		return time.Time{}, err
	}
	return d.ModTime(), nil
}

// loadLoop reloads the metadata on request. Every reload discards the dragged
// positions and lays the tables out again.
func (w *watcher) loadLoop(ctx context.Context) error {
	firstLoad := true
	for {
		select {
		case <-w.loadCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		reloadedPrefix := ""
		if !firstLoad {
			reloadedPrefix = "re"
		}

		_, err := w.r.load(ctx)
		if err != nil {
			err = fmt.Errorf("failed to %sload: %w", reloadedPrefix, err)
			w.ms.Log.Error.Print(err)
			w.broadcast(&renderResult{
				Err: err.Error(),
			})
		} else {
			w.ms.Log.Success.Printf("successfully %sloaded %v to %v", reloadedPrefix, w.r.inputName, w.r.outputPath)
		}

		if firstLoad {
			firstLoad = false
			url := fmt.Sprintf("http://%s", w.l.Addr())
			err = xbrowser.OpenURL(ctx, w.ms.Env, url)
			if err != nil {
				w.ms.Log.Warn.Printf("failed to open browser to %v: %v", url, err)
			}
		}
	}
}

// onRender runs with the driver locked for every redraw.
func (w *watcher) onRender(d *erdtarget.Diagram) {
	svg, err := erdsvg.Render(d, w.r.opts)
	if err != nil {
		w.broadcast(&renderResult{Err: err.Error()})
		return
	}
	w.broadcast(&renderResult{SVG: string(svg)})
}

// applyDrag feeds one pointer event to the driver. Releasing a table also writes the
// output and positions files.
func (w *watcher) applyDrag(ctx context.Context, msg dragMessage) error {
	var err error
	switch msg.Type {
	case DRAG_START:
		_, err = w.r.driver.DragStart(ctx, msg.Table)
	case DRAG:
		_, err = w.r.driver.DragMove(ctx, msg.Table, msg.X, msg.Y)
	case DRAG_END:
		_, err = w.r.driver.DragEnd(ctx, msg.Table)
		if err == nil {
			_, err = w.r.flush(ctx)
		}
	default:
		return xhttp.Errorf(http.StatusBadRequest, "unknown message type", "unknown message type %q", msg.Type)
	}
	if errors.Is(err, erdlib.ErrUnknownTable) {
		return xhttp.ErrorWrap(http.StatusNotFound, "unknown table", err)
	}
	return err
}

func (w *watcher) listen() error {
	host := "localhost"
	port := "0"
	hostEnv := w.ms.Env.Getenv("HOST")
	if hostEnv != "" {
		host = hostEnv
	}
	portEnv := w.ms.Env.Getenv("PORT")
	if portEnv != "" {
		port = portEnv
	}

	l, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return err
	}
	w.l = l
	w.ms.Log.Success.Printf("listening on http://%v", w.l.Addr())
	return nil
}

func (w *watcher) handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", w.handleRoot)
	m.Handle("/static/", http.StripPrefix("/static", w.staticFileServer))
	m.Handle("/watch", xhttp.HandlerFuncAdapter{Log: w.ms.Log, Func: w.handleWatch})
	m.Handle("/positions", xhttp.HandlerFuncAdapter{Log: w.ms.Log, Func: w.handlePositions})
	m.Handle("/drag", xhttp.HandlerFuncAdapter{Log: w.ms.Log, Func: w.handleDrag})
	return xhttp.Log(w.ms.Log, m)
}

func (w *watcher) goServe() {
	s := xhttp.NewServer(w.ms.Log.Warn, w.handler())
	w.goFunc(func(ctx context.Context) error {
		return xhttp.Serve(ctx, time.Second*30, s, w.l)
	})
}

func (w *watcher) getRes() *renderResult {
	w.resMu.Lock()
	defer w.resMu.Unlock()
	return w.res
}

func (w *watcher) handleRoot(hw http.ResponseWriter, r *http.Request) {
	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(hw, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
	<script src="./static/watch.js"></script>
	<link rel="stylesheet" href="./static/watch.css">
</head>
<body>
	<button id="erd-fullscreen" type="button" title="Toggle fullscreen">&#x26F6;</button>
	<div id="erd-err" style="display: none"></div>
	<div id="erd-svg"></div>
</body>
</html>`, html.EscapeString(w.r.inputName))
}

func (w *watcher) handlePositions(hw http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return xhttp.Errorf(http.StatusMethodNotAllowed, nil, "%s /positions", r.Method)
	}
	xhttp.JSON(w.ms.Log, hw, http.StatusOK, w.r.driver.Positions())
	return nil
}

// handleDrag accepts the same messages as the websocket for clients that can't hold one open.
func (w *watcher) handleDrag(hw http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return xhttp.Errorf(http.StatusMethodNotAllowed, nil, "%s /drag", r.Method)
	}
	var msg dragMessage
	if err := xhttp.DecodeJSON(r, &msg); err != nil {
		return err
	}
	if err := w.applyDrag(r.Context(), msg); err != nil {
		return err
	}
	xhttp.JSON(w.ms.Log, hw, http.StatusOK, w.r.driver.Positions())
	return nil
}

func (w *watcher) handleWatch(hw http.ResponseWriter, r *http.Request) error {
	w.wsclientsMu.Lock()
	if w.closing {
		w.wsclientsMu.Unlock()
		return xhttp.Errorf(http.StatusServiceUnavailable, "server shutting down...", "server shutting down...")
	}
	// Register before the upgrade so close waits for this client.
	w.wsclientsWG.Add(1)
	w.wsclientsMu.Unlock()

	c, err := websocket.Accept(hw, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		w.wsclientsWG.Done()
		return err
	}

	go func() {
		defer w.wsclientsWG.Done()
		defer c.Close(websocket.StatusInternalError, "the sky is falling")

		ctx, cancel := context.WithTimeout(w.ctx, time.Hour)
		defer cancel()

		cl := &wsclient{
			w:         w,
			resultsCh: make(chan struct{}, 1),
			c:         c,
		}

		w.wsclientsMu.Lock()
		w.wsclients[cl] = struct{}{}
		w.wsclientsMu.Unlock()
		defer func() {
			w.wsclientsMu.Lock()
			delete(w.wsclients, cl)
			w.wsclientsMu.Unlock()
		}()

		go func() {
			defer cancel()
			_ = cl.readLoop(ctx)
		}()
		go wsHeartbeat(ctx, cl.c)
		_ = cl.writeLoop(ctx)
	}()
	return nil
}

type wsclient struct {
	w         *watcher
	resultsCh chan struct{}
	c         *websocket.Conn

	// dragging is the table this page started dragging and has not released.
	dragging string
}

// readLoop applies drag messages until the page goes away. A bad message is logged
// and dropped. A drag still open when the page goes away is released.
func (cl *wsclient) readLoop(ctx context.Context) error {
	defer cl.release(context.WithoutCancel(ctx))
	for {
		var msg dragMessage
		err := wsjson.Read(ctx, cl.c, &msg)
		if err != nil {
			return err
		}
		err = cl.w.applyDrag(ctx, msg)
		if err != nil {
			cl.w.ms.Log.Warn.Printf("failed to apply %s of %q: %v", msg.Type, msg.Table, err)
			continue
		}
		switch msg.Type {
		case DRAG_START:
			cl.dragging = msg.Table
		case DRAG_END:
			if cl.dragging == msg.Table {
				cl.dragging = ""
			}
		}
	}
}

func (cl *wsclient) release(ctx context.Context) {
	if cl.dragging == "" {
		return
	}
	table := cl.dragging
	cl.dragging = ""
	err := cl.w.applyDrag(ctx, dragMessage{Type: DRAG_END, Table: table})
	if err != nil {
		cl.w.ms.Log.Warn.Printf("failed to release %q: %v", table, err)
	}
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	for {
		res := cl.w.getRes()
		if res != nil {
			err := cl.write(ctx, res)
			if err != nil {
				return err
			}
		}

		select {
		case <-cl.resultsCh:
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down...")
			return ctx.Err()
		}
	}
}

func (cl *wsclient) write(ctx context.Context, res *renderResult) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	return wsjson.Write(ctx, cl.c, res)
}

// broadcast stores res as the latest result and wakes every client. Clients that are
// behind only ever send the latest.
func (w *watcher) broadcast(res *renderResult) {
	w.resMu.Lock()
	w.res = res
	w.resMu.Unlock()

	w.wsclientsMu.Lock()
	defer w.wsclientsMu.Unlock()
	w.ms.Log.Debug.Printf("broadcasting update to %d client(s)", len(w.wsclients))
	for cl := range w.wsclients {
		select {
		case cl.resultsCh <- struct{}{}:
		default:
		}
	}
}

func wsHeartbeat(ctx context.Context, c *websocket.Conn) {
	defer c.Close(websocket.StatusInternalError, "the sky is falling")

	t := time.NewTimer(0)
	<-t.C
	for {
		err := c.Ping(ctx)
		if err != nil {
			return
		}

		t.Reset(time.Second * 30)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}
