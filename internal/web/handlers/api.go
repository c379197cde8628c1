package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/y-hirakaw/cchook/internal/i18n"
	"github.com/y-hirakaw/cchook/internal/security"
	"github.com/y-hirakaw/cchook/internal/storage"
	"github.com/y-hirakaw/cchook/internal/web"
	"github.com/y-hirakaw/cchook/internal/web/middleware"
	"github.com/y-hirakaw/cchook/pkg/types"
)

const (
	dateLayout        = "20060102"
	defaultAuditLimit = 100
	writeTimeout      = 10 * time.Second
)

// APIHandler はダッシュボードのAPIエンドポイントを処理する
type APIHandler struct {
	store    storage.Store
	audit    *security.AuditManager
	hub      *web.Hub
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	upgrader websocket.Upgrader
}

// NewAPIHandler は新しいAPIハンドラーを作成する
func NewAPIHandler(store storage.Store, audit *security.AuditManager, hub *web.Hub, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		store:  store,
		audit:  audit,
		hub:    hub,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleStats は累積統計を返す
func (h *APIHandler) HandleStats() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.store.LoadStats()
		if err != nil {
			h.logger.Warn("統計の読み込みに失敗", zap.Error(err))
			middleware.WriteJSONError(w, http.StatusInternalServerError, i18n.T("storage_failed"))
			return
		}
		middleware.WriteJSON(w, http.StatusOK, stats)
	})
}

// HandleSessions はセッション履歴を返す
func (h *APIHandler) HandleSessions() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		history, err := h.store.LoadHistory()
		if err != nil {
			h.logger.Warn("履歴の読み込みに失敗", zap.Error(err))
			middleware.WriteJSONError(w, http.StatusInternalServerError, i18n.T("storage_failed"))
			return
		}
		middleware.WriteJSON(w, http.StatusOK, history)
	})
}

// HandleUsage は指定日（?date=YYYYMMDD、省略時は今日）の使用ログを返す
func (h *APIHandler) HandleUsage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		date := h.now()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.ParseInLocation(dateLayout, raw, time.Local)
			if err != nil {
				middleware.WriteJSONError(w, http.StatusBadRequest, i18n.T("invalid_date_format", raw))
				return
			}
			date = parsed
		}

		entries, err := h.store.ReadUsage(date)
		if err != nil {
			h.logger.Warn("使用ログの読み込みに失敗", zap.Error(err))
			middleware.WriteJSONError(w, http.StatusInternalServerError, i18n.T("storage_failed"))
			return
		}
		if entries == nil {
			entries = []*types.UsageEntry{}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"date":    date.Format(dateLayout),
			"entries": entries,
		})
	})
}

// HandleAudit は監査ログを新しい順に返す（?limit=N, ?event=...）
func (h *APIHandler) HandleAudit() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				middleware.WriteJSONError(w, http.StatusBadRequest, "invalid limit: "+raw)
				return
			}
			limit = n
		}

		if h.audit == nil {
			middleware.WriteJSON(w, http.StatusOK, []types.AuditRecord{})
			return
		}
		records, err := h.audit.GetAuditLogs(limit, security.AuditFilter{Event: r.URL.Query().Get("event")})
		if err != nil {
			h.logger.Warn("監査ログの読み込みに失敗", zap.Error(err))
			middleware.WriteJSONError(w, http.StatusInternalServerError, i18n.T("storage_failed"))
			return
		}
		middleware.WriteJSON(w, http.StatusOK, records)
	})
}

// HandleHealth はヘルスチェックエンドポイント
// 統計が読めない場合は 503 を返す
func (h *APIHandler) HandleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if _, err := h.store.LoadStats(); err != nil {
			h.logger.Warn("ヘルスチェックに失敗", zap.Error(err))
			status = "error"
			code = http.StatusServiceUnavailable
		}
		middleware.WriteJSON(w, code, map[string]interface{}{
			"status":    status,
			"timestamp": h.now(),
			"clients":   h.hub.Count(),
		})
	})
}

// HandleWebSocket はWebSocket接続でログの更新を配信する
func (h *APIHandler) HandleWebSocket() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("WebSocketへのアップグレードに失敗", zap.Error(err))
			return
		}
		defer conn.Close()

		clientID := h.newID()
		log := h.logger.With(zap.String("client", clientID))

		updates := h.hub.Subscribe(clientID)
		defer h.hub.Unsubscribe(clientID)
		log.Debug("クライアントが接続")

		if err := h.sendInitialData(conn); err != nil {
			log.Debug("初期データの送信に失敗", zap.Error(err))
			return
		}

		closed := make(chan struct{})
		go h.readLoop(conn, closed)

		for {
			select {
			case <-closed:
				log.Debug("クライアントが切断")
				return
			case update, ok := <-updates:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
						time.Now().Add(time.Second))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(update); err != nil {
					log.Debug("イベントの送信に失敗", zap.Error(err))
					return
				}
			}
		}
	})
}

// sendInitialData は接続直後に現在の統計を送信する
func (h *APIHandler) sendInitialData(conn *websocket.Conn) error {
	stats, err := h.store.LoadStats()
	if err != nil {
		stats = types.NewUsageStats()
	}
	return conn.WriteJSON(&web.UpdateEvent{
		Type:      web.EventInitialStats,
		Timestamp: h.now(),
		Data:      stats,
	})
}

// readLoop はクライアントからのメッセージを読み捨て、切断を検知する
func (h *APIHandler) readLoop(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
