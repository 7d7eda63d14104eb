package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	"velosim/sim"
)

var upgrader = websocket.Upgrader{}

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingResolution = time.Millisecond * 500
	// The rate at which tick records are pushed to the client; intervening
	// records are dropped so a slow page never stalls the simulation.
	pubResolution = time.Millisecond * 100
	// Time to wait before force close on connection.
	closeGracePeriod = 10 * time.Second
)

// Server publishes the running simulation to a single web client: an index
// page, a websocket streaming tick records, and a status endpoint with the
// rolling means. Intentionally little generalization; the record channel can
// be drained by only one client at a time, which suits solo development of
// the model. Muxing the stream to multiple clients would start here.
type Server struct {
	addr    string
	records <-chan sim.TickRecord
	stats   *sim.RollingStats
	rootCtx context.Context
}

// NewServer wires the record stream and stats into a server at addr.
func NewServer(
	ctx context.Context,
	addr string,
	records <-chan sim.TickRecord,
	stats *sim.RollingStats,
) *Server {
	return &Server{
		addr:    addr,
		records: records,
		stats:   stats,
		rootCtx: ctx,
	}
}

func (server *Server) Serve() (err error) {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)
	router.HandleFunc("/status", server.serveStatus).Methods(http.MethodGet)

	httpServer := &http.Server{
		Addr:    server.addr,
		Handler: router,
	}
	go func() {
		<-server.rootCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeGracePeriod)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err = httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveStatus returns the latest rolling means as JSON.
func (server *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(server.stats.View()); err != nil {
		log.Println("status:", err)
	}
}

// serveWebsocket publishes tick records to the client via websocket.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.Println("upgrade:", err)
		return
	}

	defer server.closeWebsocket(ws)
	server.publishRecords(r.Context(), ws)
}

// publishRecords pushes tick records to the client until it disconnects or
// either context ends. Records arriving faster than the publication rate are
// dropped; each record is an idempotent view of the latest tick, so only the
// newest matters.
func (server *Server) publishRecords(
	ctx context.Context,
	ws *websocket.Conn,
) {
	pubCtx, cancelPub := context.WithCancel(ctx)
	defer cancelPub()
	pinger := channerics.NewTicker(pubCtx.Done(), pingResolution)
	lastPub := time.Now()
	lastPong := time.Now()

	// Monitor client health/disconnects
	pong := make(chan struct{})
	defer close(pong)
	ws.SetPongHandler(func(appData string) error {
		pong <- struct{}{}
		return nil
	})

	// A read method must be called for the ping/pong control handlers to
	// fire; a separate goroutine monitors the blocking read call. Errors
	// from websocket Read methods are permanent, hence publication must be
	// cancelled on any of them.
	go func() {
		for {
			select {
			case <-pubCtx.Done():
				return
			default:
				if _, _, err := ws.ReadMessage(); err != nil {
					cancelPub()
					if isClosure(err) {
						return
					}
					log.Println("read pump:", err)
					return
				}
			}
		}
	}()

	for {
		select {
		case <-server.rootCtx.Done():
			return
		case <-pubCtx.Done():
			return
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				log.Println("pong deadline exceeded, closing conn")
				return
			}

			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if isError(err) {
					log.Printf("ping failed: %T %v", err, err)
				}
				return
			}
		case <-pong:
			lastPong = time.Now()
		case record, ok := <-server.records:
			if !ok {
				return
			}
			// Drop records when receiving too quickly.
			if time.Since(lastPub) < pubResolution {
				break
			}

			lastPub = time.Now()
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("failed to set deadline: %T %v", err, err)
				return
			}

			if err := ws.WriteJSON(record); err != nil {
				if isError(err) {
					log.Printf("publish failed: %T %v", err, err)
				}
				return
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func (server *Server) closeWebsocket(ws *websocket.Conn) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()
}

// serveIndex renders the live view page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")

	if err := renderIndex(w, server.stats.View()); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

// The page bootstraps a websocket and prepends each tick record as a JSON
// line; good enough to watch a run without any client build step.
const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>velosim</title></head>
<body>
<h3>ring road live feed</h3>
<div>tick {{ .Tick }} | mean bike speed {{ printf "%.2f" .MeanBikeSpeed }} | mean car speed {{ printf "%.2f" .MeanCarSpeed }}</div>
<pre id="feed"></pre>
<script>
	const feed = document.getElementById("feed");
	const ws = new WebSocket("ws://" + document.location.host + "/ws");
	ws.onmessage = (evt) => {
		feed.textContent = evt.data + "\n" + feed.textContent;
		const lines = feed.textContent.split("\n");
		if (lines.length > 50) {
			feed.textContent = lines.slice(0, 50).join("\n");
		}
	};
</script>
</body>
</html>`

func renderIndex(w io.Writer, data interface{}) (err error) {
	t := template.New("index.html")
	if _, err = t.Parse(indexTemplate); err != nil {
		return
	}
	err = t.Execute(w, data)
	return
}
