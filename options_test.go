package mdcollab

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler_Defaults(t *testing.T) {
	h, err := NewHandler()
	require.NoError(t, err)
	defer h.Close()

	config := h.Config()
	assert.Equal(t, 10, config.MaxParticipants)
	assert.Equal(t, 10*time.Minute, config.IdleTimeout)
	assert.Equal(t, 2, config.SweepHour)
	assert.Equal(t, 30, config.SweepMinute)
	assert.IsType(t, &Hub{}, h.Hub())
	assert.False(t, h.Hub().IsRunning())
}

func TestNewServer_Defaults(t *testing.T) {
	s, err := NewServer()
	require.NoError(t, err)
	defer s.Handler().Close()

	assert.Equal(t, 8080, s.Config().Port)
	assert.Equal(t, "/ws", s.Config().Path)
	assert.True(t, s.Config().EnableCORS)
	assert.False(t, s.IsRunning())
}

func TestHandlerOptions(t *testing.T) {
	tests := []struct {
		name    string
		option  UniversalOption
		wantErr error
		check   func(t *testing.T, c HandlerConfig)
	}{
		{
			name:   "max participants",
			option: WithMaxParticipants(3),
			check:  func(t *testing.T, c HandlerConfig) { assert.Equal(t, 3, c.MaxParticipants) },
		},
		{
			name:    "max participants zero",
			option:  WithMaxParticipants(0),
			wantErr: ErrMaxParticipantsLessThanOne,
		},
		{
			name:   "max connections",
			option: WithMaxConnections(5, 2),
			check: func(t *testing.T, c HandlerConfig) {
				assert.Equal(t, 5, c.MaxConnections)
				assert.Equal(t, 2, c.MaxConnectionsPerIP)
			},
		},
		{
			name:    "max connections zero",
			option:  WithMaxConnections(0, 1),
			wantErr: ErrMaxConnectionsLessThanOne,
		},
		{
			name:    "message size",
			option:  WithMessageSize(0),
			wantErr: ErrMessageSizeLessThanOne,
		},
		{
			name:    "write timeout",
			option:  WithWriteTimeout(0),
			wantErr: ErrTimeoutsLessThanOne,
		},
		{
			name:   "idle timeout",
			option: WithIdleTimeout(time.Minute),
			check:  func(t *testing.T, c HandlerConfig) { assert.Equal(t, time.Minute, c.IdleTimeout) },
		},
		{
			name:    "ping pong order",
			option:  WithPingPong(time.Second, time.Second),
			wantErr: ErrPongWaitLessThanPing,
		},
		{
			name:    "ping pong zero",
			option:  WithPingPong(0, time.Second),
			wantErr: ErrPingPongLessThanOne,
		},
		{
			name:   "sweep time",
			option: WithSweepAt(4, 15),
			check: func(t *testing.T, c HandlerConfig) {
				assert.Equal(t, 4, c.SweepHour)
				assert.Equal(t, 15, c.SweepMinute)
			},
		},
		{
			name:    "sweep time out of range",
			option:  WithSweepAt(24, 0),
			wantErr: ErrInvalidSweepTime,
		},
		{
			name:    "nil logger",
			option:  WithLogger(nil, nil),
			wantErr: ErrLoggerNil,
		},
		{
			name:    "invalid rate limit",
			option:  WithRateLimit(RateLimiterConfig{}),
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "server only option",
			option:  WithPort(9000),
			wantErr: ErrWithOnlyServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.option)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			defer h.Close()
			tt.check(t, h.Config())
		})
	}
}

func TestServerOptions(t *testing.T) {
	s, err := NewServer(
		WithPort(9000),
		WithPath("collab"),
		WithCORS(false),
		WithMaxParticipants(4),
	)
	require.NoError(t, err)
	defer s.Handler().Close()

	assert.Equal(t, 9000, s.Config().Port)
	assert.Equal(t, "/collab", s.Config().Path)
	assert.False(t, s.Config().EnableCORS)
	assert.Equal(t, 4, s.Handler().Config().MaxParticipants)

	_, err = NewServer(WithPort(70000))
	assert.ErrorIs(t, err, ErrInvalidPort)

	_, err = NewServer(WithSSL("", "key.pem"))
	assert.ErrorIs(t, err, ErrSSLFilesEmpty)
}

func TestWithMiddleware(t *testing.T) {
	blocked := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	h, err := NewHandler(WithMiddleware(blocked), WithLogger(&NullLogger{}, nil))
	require.NoError(t, err)
	defer h.Close()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Eventually(t, h.Hub().IsRunning, time.Second, 10*time.Millisecond)
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := &LoggerConfig{
		Logger: NewZerologLogger(&buf),
		Level:  map[LogType]LogLevel{LogTypeRoom: LogLevelInfo},
	}

	logger.log(LogTypeRoom, LogLevelInfo, "room %s created", "doc1")
	logger.log(LogTypeRoom, LogLevelDebug, "too verbose")
	logger.log(LogTypeClient, LogLevelError, "type not configured")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "room", entry["type"])
	assert.Equal(t, "room doc1 created", entry["message"])
}

func TestLoggerConfig_Nil(t *testing.T) {
	var c *LoggerConfig
	assert.NotPanics(t, func() {
		c.log(LogTypeServer, LogLevelError, "nothing")
	})
}
