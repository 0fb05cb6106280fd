package domain

// ActionResult is the uniform outcome of every action.
type ActionResult[T any] struct {
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// Ok wraps a successful result.
func Ok[T any](data T) ActionResult[T] {
	return ActionResult[T]{Success: true, Data: data}
}

// Fail wraps a failure message.
func Fail[T any](message string) ActionResult[T] {
	return ActionResult[T]{Error: message}
}
