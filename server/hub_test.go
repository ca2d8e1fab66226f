package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"glacier/calculator"
	"glacier/model"
	"glacier/report"
)

var testParams = model.Params{MeltFactor: 1.0, TThreshold: 0, LapseRate: -0.0065}

func testOptions() Options {
	return Options{
		Site:    "test",
		Params:  testParams,
		Workers: 2,
		Domain:  calculator.Elevations(0, 500, 1000),
		Dt:      1,
		Window:  4,
	}
}

func newTestHub() *Hub {
	return NewHub(testOptions(), NewMetricsForTesting(), jsonEncoder{})
}

func msg(t *testing.T, typ string, content interface{}) model.Msg {
	m := model.Msg{Type: typ}
	if content != nil {
		b, err := json.Marshal(content)
		require.NoError(t, err)
		m.Content = b
	}
	return m
}

func testForcing() *model.Forcing {
	return &model.Forcing{
		Temperature:   []float64{-5, 0, 5, -3, 2},
		Precipitation: []float64{0.01, 0.02, 0.03, 0.04, 0.05},
	}
}

func TestHub_Params(t *testing.T) {
	h := newTestHub()
	reply := h.handle(context.Background(), model.Msg{Type: TypeParams, Content: json.RawMessage(`{"melt_factor": -0.5}`)})
	require.Equal(t, TypeParamsSet, reply.Type)

	content := reply.Content.(ParamsContent)
	assert.Equal(t, -0.5, content.Params.MeltFactor)
	assert.Equal(t, testParams.LapseRate, content.Params.LapseRate)
	assert.NotEmpty(t, content.Warnings)
	assert.Equal(t, -0.5, h.c.Params().MeltFactor)
}

func TestHub_RunWithForcing(t *testing.T) {
	h := newTestHub()
	reply := h.handle(context.Background(), msg(t, TypeRun, model.RunRequest{Forcing: testForcing()}))
	require.Equal(t, TypeResult, reply.Type, "%+v", reply.Content)

	f := testForcing()
	want, wantField, err := calculator.GlacierBalance(calculator.Elevations(0, 500, 1000), 1, f.Temperature, f.Precipitation, testParams)
	require.NoError(t, err)

	content := reply.Content.(ResultContent)
	assert.InDelta(t, want, content.Run.GlacierBalance, 1e-12)
	assert.Equal(t, wantField, content.Field)
	assert.Equal(t, "test", content.Run.Site)
	assert.Equal(t, 5, content.Run.Samples)
	assert.Equal(t, 3, content.Run.Members)
	assert.NotEmpty(t, content.Run.RunID)
}

func TestHub_RunOverrides(t *testing.T) {
	h := newTestHub()
	p := model.Params{MeltFactor: 1.0, TThreshold: 0, LapseRate: 0}
	reply := h.handle(context.Background(), msg(t, TypeRun, model.RunRequest{
		Params:     &p,
		Dt:         2,
		Elevations: []float64{0},
		Forcing:    testForcing(),
	}))
	require.Equal(t, TypeResult, reply.Type, "%+v", reply.Content)
	assert.InDelta(t, -13.86, reply.Content.(ResultContent).Run.GlacierBalance, 1e-9)

	// one-off parameters do not stick
	assert.Equal(t, testParams, h.c.Params())
}

func TestHub_SamplesThenRun(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	reply := h.handle(ctx, msg(t, TypeRun, nil))
	require.Equal(t, TypeError, reply.Type)
	assert.Contains(t, reply.Content.(ErrorContent).Error, calculator.ErrEmptyForcing.Error())

	reply = h.handle(ctx, msg(t, TypeSample, model.Sample{Time: 0, Temperature: 100, Precipitation: 0}))
	require.Equal(t, TypeWindow, reply.Type)
	assert.Equal(t, WindowContent{Size: 1, Capacity: 4, Evicted: 0}, reply.Content)

	f := testForcing()
	samples := make([]model.Sample, f.Len())
	for i := range samples {
		samples[i] = model.Sample{Time: float64(i), Temperature: f.Temperature[i], Precipitation: f.Precipitation[i]}
	}
	reply = h.handle(ctx, msg(t, TypeSample, samples))
	require.Equal(t, TypeWindow, reply.Type)
	assert.Equal(t, WindowContent{Size: 4, Capacity: 4, Evicted: 2}, reply.Content)

	// window holds the last four samples
	reply = h.handle(ctx, msg(t, TypeRun, model.RunRequest{Elevations: []float64{0}}))
	require.Equal(t, TypeResult, reply.Type, "%+v", reply.Content)
	want, err := calculator.NetBalance(1, f.Temperature[1:], f.Precipitation[1:], testParams)
	require.NoError(t, err)
	assert.InDelta(t, want, reply.Content.(ResultContent).Run.GlacierBalance, 1e-12)

	reply = h.handle(ctx, msg(t, TypeReset, nil))
	assert.Equal(t, WindowContent{Size: 0, Capacity: 4}, reply.Content)
}

func TestHub_Sweep(t *testing.T) {
	h := newTestHub()
	reply := h.handle(context.Background(), msg(t, TypeSweep, model.RunRequest{Forcing: testForcing(), Offsets: []float64{-1, 0, 1}}))
	require.Equal(t, TypeCurve, reply.Type, "%+v", reply.Content)

	f := testForcing()
	want, err := calculator.Sweep(calculator.Elevations(0, 500, 1000), 1, f.Temperature, f.Precipitation, testParams, []float64{-1, 0, 1})
	require.NoError(t, err)

	env := reply.Content.(*report.Envelope)
	assert.Equal(t, want, env.Curve)
	assert.Equal(t, want[1].Balance, env.GlacierBalance)

	reply = h.handle(context.Background(), msg(t, TypeSweep, model.RunRequest{Forcing: testForcing()}))
	require.Equal(t, TypeCurve, reply.Type)
	assert.Len(t, reply.Content.(*report.Envelope).Curve, 9)
}

func TestHub_Errors(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()

	for name, m := range map[string]model.Msg{
		"unknown type":   {Type: "start"},
		"bad params":     {Type: TypeParams, Content: json.RawMessage(`{"melt_factor": "high"}`)},
		"empty sample":   {Type: TypeSample},
		"bad sample":     {Type: TypeSample, Content: json.RawMessage(`[1, 2]`)},
		"shape mismatch": msg(t, TypeRun, model.RunRequest{Forcing: &model.Forcing{Temperature: []float64{1, 2}, Precipitation: []float64{1}}}),
		"empty domain":   {Type: TypeRun, Content: json.RawMessage(`{"elevations": [], "forcing": {"temperature": [1], "precipitation": [0]}}`)},
	} {
		reply := h.handle(ctx, m)
		assert.Equal(t, TypeError, reply.Type, name)
		assert.Equal(t, m.Type, reply.Content.(ErrorContent).Request, name)
	}

	f, ok := h.respond(ctx, []byte("{not json"))
	require.True(t, ok)
	assert.Contains(t, string(f.data), `"type":"error"`)

	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Requests.WithLabelValues("unknown", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.Requests.WithLabelValues(TypeRun, "error")))
}

func TestHub_RunLastSamples(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()
	f := testForcing()
	for i := 0; i < 4; i++ {
		h.handle(ctx, msg(t, TypeSample, model.Sample{Time: float64(i), Temperature: f.Temperature[i], Precipitation: f.Precipitation[i]}))
	}

	reply := h.handle(ctx, msg(t, TypeRun, model.RunRequest{Elevations: []float64{0}, Last: 2}))
	require.Equal(t, TypeResult, reply.Type, "%+v", reply.Content)
	want, err := calculator.NetBalance(1, f.Temperature[2:4], f.Precipitation[2:4], testParams)
	require.NoError(t, err)
	run := reply.Content.(ResultContent).Run
	assert.Equal(t, 2, run.Samples)
	assert.InDelta(t, want, run.GlacierBalance, 1e-12)

	reply = h.handle(ctx, msg(t, TypeRun, model.RunRequest{Elevations: []float64{0}, Last: 99}))
	require.Equal(t, TypeResult, reply.Type)
	assert.Equal(t, 4, reply.Content.(ResultContent).Run.Samples)
}

func decodeFrame(t *testing.T, f frame) (typ string, content ErrorContent) {
	var reply struct {
		Type    string       `json:"type"`
		Content ErrorContent `json:"content"`
	}
	require.NoError(t, json.Unmarshal(f.data, &reply))
	return reply.Type, reply.Content
}

func TestHub_NonFiniteResultIsAnError(t *testing.T) {
	h := newTestHub()
	ctx := context.Background()
	p := model.Params{MeltFactor: 10, TThreshold: 0, LapseRate: 0}
	data, err := json.Marshal(msg(t, TypeRun, model.RunRequest{
		Params:     &p,
		Elevations: []float64{0},
		Forcing:    &model.Forcing{Temperature: []float64{1e308}, Precipitation: []float64{0}},
	}))
	require.NoError(t, err)

	f, ok := h.respond(ctx, data)
	require.True(t, ok)
	assert.Equal(t, websocket.TextMessage, f.kind)
	typ, content := decodeFrame(t, f)
	assert.Equal(t, TypeError, typ)
	assert.Equal(t, TypeRun, content.Request)
	assert.Contains(t, content.Error, "encode result reply")

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Requests.WithLabelValues(TypeRun, "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.Requests.WithLabelValues(TypeRun, "ok")))

	// the same run encodes once the result is finite
	data, err = json.Marshal(msg(t, TypeRun, model.RunRequest{Elevations: []float64{0}, Forcing: testForcing()}))
	require.NoError(t, err)
	f, ok = h.respond(ctx, data)
	require.True(t, ok)
	typ, _ = decodeFrame(t, f)
	assert.Equal(t, TypeResult, typ)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Requests.WithLabelValues(TypeRun, "ok")))
}

func TestHub_CancelledRun(t *testing.T) {
	h := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	zs := make([]float64, 64)
	reply := h.handle(ctx, msg(t, TypeRun, model.RunRequest{Elevations: zs, Forcing: testForcing()}))
	require.Equal(t, TypeError, reply.Type)
	assert.Contains(t, reply.Content.(ErrorContent).Error, context.Canceled.Error())
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func TestServer_WebsocketJSON(t *testing.T) {
	s := NewServer(testOptions(), websocket.Upgrader{}, NewMetricsForTesting())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, "")
	require.NoError(t, conn.WriteJSON(msg(t, TypeRun, model.RunRequest{Elevations: []float64{0}, Forcing: testForcing()})))

	var reply struct {
		Type    string `json:"type"`
		Content struct {
			Run struct {
				GlacierBalance float64 `json:"glacier_balance"`
			} `json:"run"`
			Field []float64 `json:"field"`
		} `json:"content"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeResult, reply.Type)
	assert.InDelta(t, -6.93, reply.Content.Run.GlacierBalance, 1e-9)
	assert.Len(t, reply.Content.Field, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"launch"}`)))
	var errReply struct {
		Type    string       `json:"type"`
		Content ErrorContent `json:"content"`
	}
	require.NoError(t, conn.ReadJSON(&errReply))
	assert.Equal(t, TypeError, errReply.Type)
	assert.Equal(t, "launch", errReply.Content.Request)
}

func TestServer_WebsocketMsgpack(t *testing.T) {
	s := NewServer(testOptions(), websocket.Upgrader{}, NewMetricsForTesting())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, "?format=msgpack")
	require.NoError(t, conn.WriteJSON(msg(t, TypeSample, model.Sample{Temperature: -2, Precipitation: 0.01})))

	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)

	var reply struct {
		Type    string        `json:"type"`
		Content WindowContent `json:"content"`
	}
	dec := msgpack.NewDecoder(strings.NewReader(string(data)))
	dec.SetCustomStructTag("json")
	require.NoError(t, dec.Decode(&reply))
	assert.Equal(t, TypeWindow, reply.Type)
	assert.Equal(t, 1, reply.Content.Size)
	assert.Equal(t, 4, reply.Content.Capacity)
}

func TestServer_Health(t *testing.T) {
	s := NewServer(testOptions(), websocket.Upgrader{}, NewMetricsForTesting())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metrics.Body.Close()
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	opts := testOptions()
	opts.Addr = "127.0.0.1:0"
	s := NewServer(opts, websocket.Upgrader{}, NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 1.0, o.Dt)
	assert.Equal(t, 8760, o.Window)
}
