package model

import "context"

// Static is a deterministic Model returning canned output. It backs tests
// and offline demo profiles where no vendor credentials are available.
type Static struct {
	// Response is returned verbatim by Complete.
	Response string
	// Tokens, when set, are streamed one by one; otherwise Response is
	// streamed as a single fragment.
	Tokens []string
	// Err, when set, fails both paths.
	Err error
}

// Complete returns the canned response.
func (s *Static) Complete(_ context.Context, _ Request) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Response, nil
}

// Stream yields the canned tokens then closes.
func (s *Static) Stream(ctx context.Context, _ Request) (<-chan string, <-chan error) {
	out := make(chan string, len(s.Tokens)+1)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		if s.Err != nil {
			errCh <- s.Err
			return
		}
		tokens := s.Tokens
		if len(tokens) == 0 {
			tokens = []string{s.Response}
		}
		for _, tok := range tokens {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- tok:
			}
		}
	}()
	return out, errCh
}

// Info identifies the fake provider.
func (s *Static) Info() Info { return Info{Name: "static", Provider: "static"} }
