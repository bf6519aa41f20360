package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()

	// 10位 base36 短ID
	assert.Len(t, id, 10)
	for _, c := range id {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'z'
		assert.True(t, isDigit || isLower, "unexpected character %q in request ID", c)
	}

	// 两次生成应不同
	assert.NotEqual(t, id, GenerateRequestID())
}

func TestWithRequestContext_RoundTrip(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "req0123abcd", "billing", "reports:generate")

	reqCtx := GetRequestContext(ctx)
	assert.Equal(t, "req0123abcd", reqCtx.RequestID)
	assert.Equal(t, "billing", reqCtx.TargetName)
	assert.Equal(t, "reports:generate", reqCtx.ResourceKey)
	assert.False(t, reqCtx.StartTime.IsZero())
	assert.NotNil(t, reqCtx.Metadata)
}

func TestGetRequestContext_Defaults(t *testing.T) {
	// 未注入时返回默认值，避免调用方做 nil 检查
	reqCtx := GetRequestContext(context.Background())
	assert.Equal(t, "unknown", reqCtx.RequestID)
	assert.Empty(t, reqCtx.TargetName)
	assert.Empty(t, reqCtx.ResourceKey)

	reqCtx = GetRequestContext(nil) //nolint:staticcheck
	assert.Equal(t, "unknown", reqCtx.RequestID)
}

func TestContextAccessors(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "req0123abcd", "billing", "reports:generate")

	assert.Equal(t, "req0123abcd", GetRequestID(ctx))
	assert.Equal(t, "billing", GetTargetName(ctx))
	assert.Equal(t, "reports:generate", GetResourceKey(ctx))

	assert.Equal(t, "unknown", GetRequestID(context.Background()))
	assert.Empty(t, GetTargetName(context.Background()))
}

func TestMetadata(t *testing.T) {
	ctx := WithRequestContext(context.Background(), "req0123abcd", "billing", "reports:generate")

	SetMetadata(ctx, "attempt", 2)

	value, ok := GetMetadata(ctx, "attempt")
	assert.True(t, ok)
	assert.Equal(t, 2, value)

	_, ok = GetMetadata(ctx, "missing")
	assert.False(t, ok)
}

func TestMetadata_RequiresInjectedContext(t *testing.T) {
	// 未注入 RequestContext 时，metadata 写入会被丢弃
	ctx := context.Background()
	SetMetadata(ctx, "attempt", 2)

	_, ok := GetMetadata(ctx, "attempt")
	assert.False(t, ok)
}

func TestGetElapsedTime(t *testing.T) {
	// 未注入时 StartTime 为零值，返回 0
	assert.Equal(t, int64(0), GetElapsedTime(context.Background()))

	ctx := WithRequestContext(context.Background(), "req0123abcd", "billing", "reports:generate")
	assert.GreaterOrEqual(t, GetElapsedTime(ctx), int64(0))
}
