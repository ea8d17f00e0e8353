package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// caller holds what every typed client needs to reach one service.
type caller struct {
	conn     grpc.ClientConnInterface
	guard    *Guard
	service  string
	resource string
	timeout  time.Duration
}

func (c caller) fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", c.service, method)
}

// invoke performs a unary call bounded by the per-call deadline.
func (c caller) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}

	callCtx, cancel := context.WithTimeoutCause(ctx, c.timeout, errCallDeadline)
	defer cancel()

	err = c.guard.Do(callCtx, method, func(ctx context.Context) error {
		return c.conn.Invoke(ctx, c.fullMethod(method), in, out)
	})
	if err != nil {
		return mapError(c.resource, err)
	}
	if resp == nil {
		return nil
	}
	if err := fromStruct(out, resp); err != nil {
		return mapError(c.resource, err)
	}
	return nil
}

// openStream starts a server-streaming call. The returned cancel releases
// the stream and must always be called.
func (c caller) openStream(ctx context.Context, method string, req any) (grpc.ClientStream, context.CancelFunc, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, nil, err
	}

	streamCtx, cancel := context.WithTimeoutCause(ctx, c.timeout, errCallDeadline)
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}

	var stream grpc.ClientStream
	err = c.guard.Do(streamCtx, method, func(ctx context.Context) error {
		s, err := c.conn.NewStream(ctx, desc, c.fullMethod(method))
		if err != nil {
			return err
		}
		// io.EOF means the server already ended the stream; its status
		// surfaces on the first RecvMsg.
		if err := s.SendMsg(in); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err := s.CloseSend(); err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		cancel()
		return nil, nil, mapError(c.resource, err)
	}
	return stream, cancel, nil
}
