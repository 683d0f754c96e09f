package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	taskIDKey  contextKey = "task_id"
	commandKey contextKey = "command"
)

// WithTaskID 设置一次指令调用的任务 ID
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskIDKey, taskID)
}

// TaskID 获取任务 ID
func TaskID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(taskIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithCommand 设置触发的指令名
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandKey, command)
}

// Command 获取触发的指令名
func Command(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(commandKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
