package worker

import "github.com/hibiken/asynq"

// Client wraps *asynq.Client, the enqueue-side handle application services
// and the scheduler's own fan-out handlers share. It satisfies
// domain/worker.Enqueuer directly.
type Client struct {
	asynqClient *asynq.Client
}

// NewClient builds a Client against the given Redis address.
func NewClient(redisAddr string) *Client {
	return &Client{asynqClient: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Enqueue submits a task, satisfying domain/worker.Enqueuer.
func (c *Client) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.asynqClient.Enqueue(task, opts...)
}

// Close releases the underlying asynq client's Redis connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}
