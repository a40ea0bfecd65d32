package identify

import (
	"context"
	"fmt"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/protocol"
)

// AnimeInfo is the typed record spec §4.7 names: aid, eid, gid, anime
// title, episode number, group name.
type AnimeInfo struct {
	AnimeID     int
	EpisodeID   int
	GroupID     int
	AnimeTitle  string
	EpisodeNum  string
	GroupName   string
}

// NotFoundError marks a 320 NO SUCH FILE response.
type NotFoundError struct{ ED2K string; Size int64 }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("identify: no such file (ed2k=%s size=%d)", e.ED2K, e.Size)
}

// AmbiguousError marks a 322 MULTIPLE FILES FOUND response: the caller
// must pick one of FileIDs.
type AmbiguousError struct{ FileIDs []int }

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("identify: multiple files found (%d candidates)", len(e.FileIDs))
}

// commander is the subset of *protocol.Client the service needs,
// letting tests substitute a fake without standing up a UDP socket.
type commander interface {
	Command(ctx context.Context, command string, params map[string]string) (*protocol.Response, error)
}

// Service resolves file identity against AniDB's FILE command.
type Service struct {
	client commander
}

func NewService(client commander) *Service {
	return &Service{client: client}
}

// Identify sends FILE for the given ed2k/size pair using the pinned
// fmask/amask, per spec §4.7.
func (s *Service) Identify(ctx context.Context, ed2kHex string, size int64) (*AnimeInfo, error) {
	resp, err := s.client.Command(ctx, "FILE", map[string]string{
		"size":  fmt.Sprint(size),
		"ed2k":  ed2kHex,
		"fmask": maskHex(DefaultFileMask[:]),
		"amask": maskHex(DefaultAnimeMask[:]),
	})
	if err != nil {
		return nil, err
	}

	switch resp.Code {
	case protocol.CodeNoSuchFile:
		return nil, &NotFoundError{ED2K: ed2kHex, Size: size}
	case protocol.CodeMultipleFilesFound:
		return nil, &AmbiguousError{FileIDs: parseFileIDs(resp)}
	}

	if len(resp.DataLines) == 0 {
		return nil, anerr.New(anerr.Protocol, "FILE response %d had no data line", resp.Code)
	}
	return parseAnimeInfo(resp.DataLines[0]), nil
}

func parseFileIDs(resp *protocol.Response) []int {
	var ids []int
	for _, line := range resp.DataLines {
		if len(line) == 0 {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(line[0], "%d", &id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseAnimeInfo maps the FILE data line onto AnimeInfo, in the field
// order implied by DefaultFileMask/DefaultAnimeMask: gid, eid, aid,
// romaji anime name, episode number, group name.
func parseAnimeInfo(fields []string) *AnimeInfo {
	info := &AnimeInfo{}
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	fmt.Sscanf(get(0), "%d", &info.GroupID)
	fmt.Sscanf(get(1), "%d", &info.EpisodeID)
	fmt.Sscanf(get(2), "%d", &info.AnimeID)
	info.AnimeTitle = get(3)
	info.EpisodeNum = get(4)
	info.GroupName = get(5)
	return info
}
