// Package web はログディレクトリを監視するローカルダッシュボードを提供する
package web

import (
	"sync"
	"time"
)

// イベント種別
const (
	EventInitialStats = "initial_stats"
	EventUsage        = "usage"
	EventNotification = "notification"
	EventSession      = "session"
	EventStats        = "stats"
)

// subscriberBuffer は購読者ごとのバッファ数
const subscriberBuffer = 100

// UpdateEvent はリアルタイム更新イベント
type UpdateEvent struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Hub はイベントを購読者に配信する
// バッファが満杯の購読者にはイベントを送らず、配信元をブロックしない
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan *UpdateEvent
	dropped     map[string]int
	closed      bool
}

// NewHub は新しいHubを作成する
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]chan *UpdateEvent),
		dropped:     make(map[string]int),
	}
}

// Subscribe はリアルタイム更新を購読する
// Hubが閉じられている場合は閉じたチャネルを返す
func (h *Hub) Subscribe(clientID string) <-chan *UpdateEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan *UpdateEvent, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch
	}
	if old, exists := h.subscribers[clientID]; exists {
		close(old)
	}
	h.subscribers[clientID] = ch
	return ch
}

// Unsubscribe はリアルタイム更新を停止する
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, exists := h.subscribers[clientID]; exists {
		close(ch)
		delete(h.subscribers, clientID)
		delete(h.dropped, clientID)
	}
}

// Broadcast は全購読者にイベントを送信する
func (h *Hub) Broadcast(event *UpdateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// バッファが満杯の場合はスキップ
			h.dropped[id]++
		}
	}
}

// Dropped は購読者ごとの破棄したイベント数を返す
func (h *Hub) Dropped(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped[clientID]
}

// Count は購読者数を返す
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close は全購読者のチャネルを閉じ、以降の購読を受け付けない
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
