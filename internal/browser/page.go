package browser

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"

	"github.com/YangchenYe323/hapi/internal/dispatch"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Page is a session attached to a single tab through the tab's own
// websocket. Closing it leaves the tab open.
type Page struct {
	id     string
	conn   *rpcc.Conn
	client *cdp.Client
}

var _ dispatch.Page = (*Page)(nil)

func (b *Browser) OpenPage(ctx context.Context, tabID string) (dispatch.Page, error) {
	t, err := b.findPage(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if t.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("标签页 %s 没有调试地址，可能已被其他调试器占用", tabID)
	}
	conn, err := rpcc.DialContext(ctx, t.WebSocketDebuggerURL)
	if err != nil {
		return nil, err
	}
	return &Page{id: tabID, conn: conn, client: cdp.NewClient(conn)}, nil
}

// Evaluate runs expression in the page's main world and decodes its value.
// Promises are awaited; a thrown exception is returned as an error.
func (p *Page) Evaluate(ctx context.Context, expression string, out any) error {
	args := runtime.NewEvaluateArgs(expression).
		SetReturnByValue(true).
		SetAwaitPromise(true)
	reply, err := p.client.Runtime.Evaluate(ctx, args)
	if err != nil {
		return fmt.Errorf("页面 %s 执行脚本失败: %w", p.id, err)
	}
	if reply.ExceptionDetails != nil {
		return fmt.Errorf("页面 %s 脚本异常: %s", p.id, exceptionText(reply.ExceptionDetails))
	}
	return decodeValue(reply.Result, out)
}

func (p *Page) Close() error {
	return p.conn.Close()
}

// An undefined result carries no value and decodes like null.
func decodeValue(obj runtime.RemoteObject, out any) error {
	if len(obj.Value) == 0 {
		return json.Unmarshal([]byte("null"), out)
	}
	return json.Unmarshal(obj.Value, out)
}

func exceptionText(e *runtime.ExceptionDetails) string {
	if e.Exception != nil && e.Exception.Description != nil {
		return *e.Exception.Description
	}
	return e.Text
}
