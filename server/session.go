package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ByLCY/memegen/capture"
	"github.com/ByLCY/memegen/dsl"
	"github.com/ByLCY/memegen/layout"
	"github.com/ByLCY/memegen/share"
)

const msgCaptureFailed = "Failed to generate image. Please try again."

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 << 10,
}

// Command 是客户端发来的编辑命令。
type Command struct {
	Op       string  `json:"op"`
	ID       int64   `json:"id,omitempty"`
	Text     string  `json:"text,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Value    float64 `json:"value,omitempty"`
	Template int     `json:"template,omitempty"`
	Platform string  `json:"platform,omitempty"`
	URL      string  `json:"url,omitempty"`
}

// Event 是服务端推送给客户端的消息。
type Event struct {
	Type        string              `json:"type"`
	Template    int                 `json:"template,omitempty"`
	Annotations []layout.Annotation `json:"annotations,omitempty"`
	Selected    int64               `json:"selected,omitempty"`
	DataURI     string              `json:"dataUri,omitempty"`
	Filename    string              `json:"filename,omitempty"`
	Script      string              `json:"script,omitempty"`
	URL         string              `json:"url,omitempty"`
	Target      string              `json:"target,omitempty"`
	Text        string              `json:"text,omitempty"`
	Message     string              `json:"message,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// session 持有一个连接独占的编辑器、视图与预览。所有写操作都在读循环的 goroutine 中完成。
type session struct {
	id      string
	conn    *websocket.Conn
	log     *slog.Logger
	editor  *layout.Editor
	view    *capture.View
	preview capture.Preview
	share   *share.Dispatcher
}

// handleSession 升级为 websocket；?display=N 指定客户端画布的显示边长。
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	display := 0.0
	if v := r.URL.Query().Get("display"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, msgInvalidRequest)
			return
		}
		display = d
	}

	// 升级响应绕过 w，需要显式带上请求 id
	conn, err := upgrader.Upgrade(w, r, http.Header{"X-Request-ID": {w.Header().Get("X-Request-ID")}})
	if err != nil {
		// Upgrade 已经写回了错误响应
		loggerFrom(r.Context()).Info("websocket 升级失败", "err", err)
		return
	}
	defer conn.Close()

	sess := s.newSession(conn, display, loggerFrom(r.Context()))
	sess.run(r.Context())
}

func (s *Server) newSession(conn *websocket.Conn, display float64, log *slog.Logger) *session {
	editor := layout.NewEditor()
	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		editor: editor,
		view:   capture.NewView(editor, s.cfg.Loader, s.cfg.Renderer, display),
	}
	sess.log = log.With("session", sess.id)
	out := sessionOutput{sess}
	sess.share = &share.Dispatcher{
		Downloader: out,
		Clipboard:  out,
		Notifier:   out,
		Opener:     out,
		Logger:     sess.log,
	}
	return sess
}

func (sess *session) run(ctx context.Context) {
	sess.log.Debug("会话开始")
	if err := sess.send(sess.state()); err != nil {
		return
	}
	for {
		var cmd Command
		if err := sess.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.log.Debug("读取命令失败", "err", err)
			}
			return
		}
		if err := sess.handle(ctx, cmd); err != nil {
			sess.log.Debug("命令失败", "op", cmd.Op, "err", err)
			if sendErr := sess.send(Event{Type: "error", Error: err.Error()}); sendErr != nil {
				return
			}
		}
	}
}

var errUnknownOp = errors.New("unknown op")

// handle 执行一条命令。返回的错误会以 error 事件发回客户端，连接保持。
func (sess *session) handle(ctx context.Context, cmd Command) error {
	e := sess.editor
	switch cmd.Op {
	case "add":
		if _, ok := e.AddAnnotation(cmd.Text); !ok {
			return errors.New("text must not be empty")
		}
	case "move":
		e.MoveAnnotation(cmd.ID, cmd.X, cmd.Y)
	case "resize":
		e.ResizeAnnotation(cmd.ID, cmd.X, cmd.Y, cmd.Width, cmd.Height)
	case "font":
		e.SetFontSize(cmd.Value)
	case "select":
		e.SelectAnnotation(cmd.ID)
	case "deselect":
		e.Deselect()
	case "text":
		if err := e.EditText(cmd.ID, cmd.Text); err != nil {
			return err
		}
	case "remove":
		e.RemoveAnnotation(cmd.ID)
	case "switch":
		e.SwitchTemplate()
	case "template":
		if err := e.SetTemplate(cmd.Template); err != nil {
			return err
		}
	case "hover":
		sess.view.Hover(cmd.ID)
		return nil
	case "capture":
		return sess.capture(ctx)
	case "export":
		return sess.send(Event{Type: "script", Script: dsl.Format(e, sess.view.Size())})
	case "share":
		return sess.shareSnapshot(ctx)
	case "download":
		return sess.share.Download(sess.preview.Value())
	case "shareTo":
		platform, err := share.ParsePlatform(cmd.Platform)
		if err != nil {
			return err
		}
		// 与下载一样，只有生成过预览后才能分享到平台
		if sess.preview.Value() == "" {
			return nil
		}
		return sess.share.ShareTo(ctx, platform, cmd.URL)
	default:
		return fmt.Errorf("%w %q", errUnknownOp, cmd.Op)
	}
	return sess.send(sess.state())
}

// capture 刷新预览；失败时预览保持原值，并单独告知客户端。
func (sess *session) capture(ctx context.Context) error {
	if err := sess.preview.Refresh(ctx, sess.view); err != nil {
		sess.log.Warn("快照失败", "err", err)
		return errors.New(msgCaptureFailed)
	}
	return sess.send(Event{Type: "preview", DataURI: sess.preview.Value()})
}

// shareSnapshot 以 2 倍分辨率重新快照后交给 Dispatcher。
// 服务端没有系统分享面板，Dispatcher 会回退为下载。
func (sess *session) shareSnapshot(ctx context.Context) error {
	uri, err := capture.Capture(ctx, sess.view, capture.ShareOptions)
	if err != nil {
		sess.log.Warn("分享快照失败", "err", err)
		return errors.New(msgCaptureFailed)
	}
	return sess.share.Share(ctx, uri)
}

func (sess *session) state() Event {
	selected, _ := sess.editor.Selected()
	return Event{
		Type:        "state",
		Template:    sess.editor.Template(),
		Annotations: sess.editor.Annotations(),
		Selected:    selected,
	}
}

func (sess *session) send(ev Event) error {
	if err := sess.conn.WriteJSON(ev); err != nil {
		sess.log.Debug("发送事件失败", "type", ev.Type, "err", err)
		return err
	}
	return nil
}

// sessionOutput 把分享动作转成发给客户端的事件，由浏览器完成下载、复制与打开。
type sessionOutput struct{ sess *session }

func (o sessionOutput) Download(dataURI, filename string) error {
	return o.sess.send(Event{Type: "download", DataURI: dataURI, Filename: filename})
}

func (o sessionOutput) WriteText(text string) error {
	return o.sess.send(Event{Type: "clipboard", Text: text})
}

func (o sessionOutput) Notify(msg string) {
	_ = o.sess.send(Event{Type: "notify", Message: msg})
}

func (o sessionOutput) Open(rawURL, target string) error {
	return o.sess.send(Event{Type: "open", URL: rawURL, Target: target})
}
