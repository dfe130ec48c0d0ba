package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

const taskTypeSend = "mail:send"

// Dispatcher はメール送信の依頼契約です。
// 依頼の受付（キュー投入）までを待ち、実際の配信はワーカーが行います。
type Dispatcher interface {
	Dispatch(ctx context.Context, to, url string) error
}

// TaskPayload はメール送信ジョブのペイロードです。
type TaskPayload struct {
	To  string `json:"to"`
	URL string `json:"url"`
}

// Queue は Asynq によるメール送信キューです。
// Dispatch でジョブを投入し、バックグラウンドワーカーが Sender で配信します。
type Queue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	logger *log.Logger
}

// NewQueue は Queue を初期化します。
func NewQueue(redisURL string, sender Sender, logger *log.Logger) (*Queue, error) {
	if sender == nil {
		return nil, errors.New("sender is nil")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"mail": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	queue := &Queue{
		client: client,
		server: server,
		mux:    mux,
		sender: sender,
		logger: logger,
	}
	mux.HandleFunc(taskTypeSend, queue.handleSendTask)
	return queue, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (q *Queue) StartWorkers() {
	go func() {
		if err := q.server.Run(q.mux); err != nil && err != asynq.ErrServerClosed {
			if q.logger != nil {
				q.logger.Printf("asynq server stopped with error: %v", err)
			} else {
				log.Printf("asynq server stopped with error: %v", err)
			}
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (q *Queue) Shutdown(ctx context.Context) error {
	q.server.Shutdown()
	q.client.Close()
	return nil
}

// Dispatch はメール送信ジョブをキューに投入します。
// 投入の失敗は呼び出し元へエラーとして返ります。
func (q *Queue) Dispatch(ctx context.Context, to, url string) error {
	if to == "" {
		return fmt.Errorf("to is required")
	}

	body, err := json.Marshal(&TaskPayload{To: to, URL: url})
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeSend, body, asynq.Queue("mail"))
	if _, err := q.client.EnqueueContext(ctx, task, asynq.MaxRetry(1)); err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}
	return nil
}

func (q *Queue) handleSendTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	if payload.To == "" {
		return fmt.Errorf("missing to in payload")
	}

	return q.sender.Send(ctx, payload.To, payload.URL)
}
