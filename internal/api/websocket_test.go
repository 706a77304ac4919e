// internal/api/websocket_test.go
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestProjectWebSocketNotifications(t *testing.T) {
	router := setupTestRouter(t, &fakeLLMProvider{response: "ok"}, &fakeImageProvider{})
	server := httptest.NewServer(router)
	defer server.Close()

	if w, _ := doJSON(t, router, http.MethodPost, "/api/projects",
		map[string]string{"project_name": "wsfilm"}); w.Code != http.StatusCreated {
		t.Fatalf("创建项目失败: %d", w.Code)
	}

	wsURL := strings.Replace(server.URL, "http://", "ws://", 1) + "/ws/projects/wsfilm"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("建立 WebSocket 连接失败: %v", err)
	}
	defer conn.Close()

	// 触发一次变更操作，订阅者应该收到通知
	resp, err := http.Post(server.URL+"/api/projects/wsfilm/concept/generate-concepts",
		"application/json", strings.NewReader(`{"seed_idea":"a seed"}`))
	if err != nil {
		t.Fatalf("触发变更失败: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("变更操作应该成功, 实际 %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("读取通知失败: %v", err)
	}

	var notification struct {
		Type        string `json:"type"`
		ProjectName string `json:"project_name"`
		Operation   string `json:"operation"`
	}
	if err := json.Unmarshal(message, &notification); err != nil {
		t.Fatalf("解析通知失败: %v", err)
	}
	if notification.Type != "project_updated" {
		t.Errorf("通知类型应该是 project_updated, 实际 %q", notification.Type)
	}
	if notification.ProjectName != "wsfilm" {
		t.Errorf("通知应该携带项目名, 实际 %q", notification.ProjectName)
	}
	if notification.Operation == "" {
		t.Error("通知应该携带操作名")
	}
}

func TestWebSocketIgnoresOtherProjects(t *testing.T) {
	router := setupTestRouter(t, &fakeLLMProvider{response: "ok"}, &fakeImageProvider{})
	server := httptest.NewServer(router)
	defer server.Close()

	for _, name := range []string{"filma", "filmb"} {
		if w, _ := doJSON(t, router, http.MethodPost, "/api/projects",
			map[string]string{"project_name": name}); w.Code != http.StatusCreated {
			t.Fatalf("创建项目 %q 失败: %d", name, w.Code)
		}
	}

	wsURL := strings.Replace(server.URL, "http://", "ws://", 1) + "/ws/projects/filma"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("建立 WebSocket 连接失败: %v", err)
	}
	defer conn.Close()

	// 变更另一个项目，本订阅不应收到业务通知
	resp, err := http.Post(server.URL+"/api/projects/filmb/concept/generate-concepts",
		"application/json", strings.NewReader(`{"seed_idea":"a seed"}`))
	if err != nil {
		t.Fatalf("触发变更失败: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("订阅其他项目的连接不应收到通知")
	}
}
