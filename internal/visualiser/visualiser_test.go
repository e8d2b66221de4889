package visualiser

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/banshee-data/ridealong/internal/camera"
	"github.com/banshee-data/ridealong/internal/render"
)

func sampleState(far float64, view2D bool) render.State {
	f := camera.BuildFrame(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{X: 1}, camera.FrameOptions{View2D: view2D})
	mode := camera.Pinhole
	if view2D {
		mode = camera.Orthographic
	}
	plane := camera.NewClippingPlane(f.Tangent, r3.Vec{X: 1, Y: 2, Z: 3})
	return render.State{Camera: f.Pose(mode, far), ClippingPlane: &plane, Grid: render.Grid{Enabled: view2D}}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, st := range []render.State{sampleState(10, false), sampleState(25, true), render.ResetState()} {
		msg, err := EncodeState(st)
		require.NoError(t, err)
		got, err := DecodeState(msg)
		require.NoError(t, err)
		assert.Equal(t, st, got)
	}
}

func TestDecodeStateRejectsMissingCamera(t *testing.T) {
	msg, err := EncodeState(render.ResetState())
	require.NoError(t, err)
	delete(msg.Fields, "camera")
	_, err = DecodeState(msg)
	assert.Error(t, err)
}

func startBufconn(t *testing.T, fanout *render.Fanout) (*Server, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(fanout, DefaultConfig())
	require.NoError(t, srv.Serve(lis))
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func TestWatch_StreamsLatestThenUpdates(t *testing.T) {
	fanout := render.NewFanout()
	first := sampleState(10, false)
	fanout.Push(first)
	srv, conn := startBufconn(t, fanout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wc, err := Watch(ctx, conn, "test")
	require.NoError(t, err)

	got, err := wc.Recv()
	require.NoError(t, err)
	assert.Equal(t, first, got, "latest state is delivered on connect")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, time.Second, time.Millisecond)

	next := sampleState(40, true)
	fanout.Push(next)
	got, err = wc.Recv()
	require.NoError(t, err)
	assert.Equal(t, next, got)

	cancel()
	require.Eventually(t, func() bool { return fanout.Stats().Subscribers == 0 }, time.Second, time.Millisecond)
}

func TestServer_DoubleServe(t *testing.T) {
	srv, _ := startBufconn(t, render.NewFanout())
	assert.Error(t, srv.Serve(bufconn.Listen(1024)))
}
