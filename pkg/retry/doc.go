// Package retry provides the bounded retry loop used by the request executors.
//
// A provider call is attempted up to MaxAttempts times. Only transient
// failures (connection errors and 5xx responses) are retried, with a fixed
// delay between attempts by default:
//
//	err := retry.Do(func() error {
//		resp, err = c.send(ctx, req)
//		return err
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: 5 * time.Second},
//		Context:     ctx,
//	})
//
// Rate limit errors are never retried here; they surface to the caller,
// which waits on the quota tracker instead.
package retry
