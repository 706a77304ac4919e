// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/FilmForgeAI/internal/utils"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

// ProjectClient 表示一个订阅项目更新的 WebSocket 客户端
type ProjectClient struct {
	conn        *websocket.Conn
	projectName string
	send        chan []byte
	closed      int32 // 原子操作标志，0=开启，1=关闭
}

// Close 安全关闭客户端连接
func (client *ProjectClient) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		if client.conn != nil {
			client.conn.Close()
		}
	}
}

// IsClosed 检查连接是否已关闭
func (client *ProjectClient) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

// ProjectHub 按项目名管理订阅连接，向订阅者推送状态变更事件
type ProjectHub struct {
	mutex   sync.RWMutex
	clients map[string]map[*ProjectClient]bool // projectName -> clients
}

// NewProjectHub 创建项目更新推送中心
func NewProjectHub() *ProjectHub {
	return &ProjectHub{
		clients: make(map[string]map[*ProjectClient]bool),
	}
}

func (hub *ProjectHub) register(client *ProjectClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if hub.clients[client.projectName] == nil {
		hub.clients[client.projectName] = make(map[*ProjectClient]bool)
	}
	hub.clients[client.projectName][client] = true
}

func (hub *ProjectHub) unregister(client *ProjectClient) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if clients, ok := hub.clients[client.projectName]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(hub.clients, client.projectName)
		}
	}
	client.Close()
}

// NotifyProjectUpdated 向项目的所有订阅者推送更新事件
// 客户端收到后应该重新加载项目状态
func (hub *ProjectHub) NotifyProjectUpdated(projectName, operation string) {
	message, err := json.Marshal(map[string]interface{}{
		"type":         "project_updated",
		"project_name": projectName,
		"operation":    operation,
		"timestamp":    time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return
	}

	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	for client := range hub.clients[projectName] {
		if client.IsClosed() {
			continue
		}
		select {
		case client.send <- message:
		default:
			// 发送缓冲已满，放弃该条消息
		}
	}
}

// ProjectWebSocket 处理项目更新订阅连接
func (h *Handler) ProjectWebSocket(c *gin.Context) {
	projectName := c.Param("name")
	if projectName == "" {
		h.Response.BadRequest(c, "project name is required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &ProjectClient{
		conn:        conn,
		projectName: projectName,
		send:        make(chan []byte, 32),
	}
	h.Hub.register(client)

	go h.writeLoop(client)
	go h.readLoop(client)
}

// writeLoop 把推送消息写出到连接，定期发送 ping 保活
func (h *Handler) writeLoop(client *ProjectClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		h.Hub.unregister(client)
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop 只负责消费控制帧并感知断开
func (h *Handler) readLoop(client *ProjectClient) {
	defer h.Hub.unregister(client)

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
