package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNotificationRange(t *testing.T) {
	require.True(t, IsNotification(720))
	require.True(t, IsNotification(799))
	require.False(t, IsNotification(719))
	require.False(t, IsNotification(800))
}

func TestClassifyRetryMatchesSpecTable(t *testing.T) {
	require.Equal(t, RetryBackoff, ClassifyRetry(602))
	require.Equal(t, RetryBackoff, ClassifyRetry(604))
	require.Equal(t, PauseClient, ClassifyRetry(601))
	require.Equal(t, FatalSession, ClassifyRetry(555))
	require.Equal(t, RetryReauth, ClassifyRetry(501))
	require.Equal(t, RetryReauth, ClassifyRetry(506))
	require.Equal(t, NoRetry, ClassifyRetry(500))
	require.Equal(t, NoRetry, ClassifyRetry(502))
	require.Equal(t, NoRetry, ClassifyRetry(504))
	require.Equal(t, NoRetry, ClassifyRetry(505))
	require.Equal(t, NoRetry, ClassifyRetry(598))
}

func TestIsReservedCodes(t *testing.T) {
	require.True(t, IsReserved(CodeAddedStream))
	require.True(t, IsReserved(CodeSizeHashExists))
	require.False(t, IsReserved(CodeNoSuchFile))
}
