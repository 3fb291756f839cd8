package intercept

import "fmt"

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("interceptor panic: %w", err)
	}
	return fmt.Errorf("interceptor panic: %v", r)
}
