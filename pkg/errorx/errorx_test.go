package errorx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeError_WrapKeepsCause(t *testing.T) {
	root := errors.New("connection refused")
	err := Wrapf(root, CodeConnectivity, "查询会话 %s", "C1")

	assert.Equal(t, "查询会话 C1: connection refused", err.Error())
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, CodeConnectivity, GetCode(err))
}

func TestGetCode_DefaultsToServerBusy(t *testing.T) {
	assert.Equal(t, CodeServerBusy, GetCode(errors.New("plain")))
	assert.Equal(t, CodeNotFound, GetCode(fmt.Errorf("outer: %w", ErrConversationNotFound)))
}

func TestIs_MatchesPredefinedByCode(t *testing.T) {
	err := Wrap(errors.New("blank"), CodeEmptyBody, "文本消息为空")

	assert.True(t, errors.Is(err, ErrEmptyBody))
	assert.False(t, errors.Is(err, ErrInvalidTransition))
	assert.True(t, IsNotFound(Newf(CodeNotFound, "会话 %s 不存在", "C9")))
	assert.False(t, IsNotFound(nil))
}

func TestTimeoutAndConnectivityAreDistinct(t *testing.T) {
	assert.NotEqual(t, ErrTimeout.Code, ErrConnectivity.Code)
	assert.False(t, errors.Is(ErrTimeout, ErrConnectivity))
}
