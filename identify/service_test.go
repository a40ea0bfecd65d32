package identify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anidbgo/anidb/protocol"
)

type fakeCommander struct {
	resp *protocol.Response
	err  error
}

func (f *fakeCommander) Command(context.Context, string, map[string]string) (*protocol.Response, error) {
	return f.resp, f.err
}

func TestIdentifyParsesAnimeInfo(t *testing.T) {
	fake := &fakeCommander{resp: &protocol.Response{
		Code:      220,
		DataLines: [][]string{{"10", "20", "30", "Cowboy Bebop", "5", "Release Group"}},
	}}
	svc := NewService(fake)

	info, err := svc.Identify(context.Background(), "abc123", 12345)
	require.NoError(t, err)
	require.Equal(t, 10, info.GroupID)
	require.Equal(t, 20, info.EpisodeID)
	require.Equal(t, 30, info.AnimeID)
	require.Equal(t, "Cowboy Bebop", info.AnimeTitle)
	require.Equal(t, "5", info.EpisodeNum)
	require.Equal(t, "Release Group", info.GroupName)
}

func TestIdentifyReturnsNotFoundOn320(t *testing.T) {
	fake := &fakeCommander{resp: &protocol.Response{Code: protocol.CodeNoSuchFile}}
	svc := NewService(fake)

	_, err := svc.Identify(context.Background(), "abc123", 1)
	require.ErrorAs(t, err, new(*NotFoundError))
}

func TestIdentifyReturnsAmbiguousOn322(t *testing.T) {
	fake := &fakeCommander{resp: &protocol.Response{
		Code:      protocol.CodeMultipleFilesFound,
		DataLines: [][]string{{"1"}, {"2"}, {"3"}},
	}}
	svc := NewService(fake)

	_, err := svc.Identify(context.Background(), "abc123", 1)
	var ambig *AmbiguousError
	require.ErrorAs(t, err, &ambig)
	require.Equal(t, []int{1, 2, 3}, ambig.FileIDs)
}
