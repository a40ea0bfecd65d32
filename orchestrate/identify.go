package orchestrate

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/cache"
	"github.com/anidbgo/anidb/hashing"
	"github.com/anidbgo/anidb/identify"
)

// identifyCodec is the Codec[identify.AnimeInfo] backing the
// (ed2k, size) -> AnimeInfo cache.
type identifyCodec struct{}

type identifyWire struct {
	AnimeID    int    `cbor:"anime_id"`
	EpisodeID  int    `cbor:"episode_id"`
	GroupID    int    `cbor:"group_id"`
	AnimeTitle string `cbor:"anime_title"`
	EpisodeNum string `cbor:"episode_num"`
	GroupName  string `cbor:"group_name"`
}

func (identifyCodec) Encode(v identify.AnimeInfo) ([]byte, error) {
	raw, err := cbor.Marshal(identifyWire{
		AnimeID: v.AnimeID, EpisodeID: v.EpisodeID, GroupID: v.GroupID,
		AnimeTitle: v.AnimeTitle, EpisodeNum: v.EpisodeNum, GroupName: v.GroupName,
	})
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "encode anime info")
	}
	return raw, nil
}

func (identifyCodec) Decode(b []byte) (identify.AnimeInfo, error) {
	var w identifyWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return identify.AnimeInfo{}, anerr.Wrap(err, anerr.Cache, "decode anime info")
	}
	return identify.AnimeInfo{
		AnimeID: w.AnimeID, EpisodeID: w.EpisodeID, GroupID: w.GroupID,
		AnimeTitle: w.AnimeTitle, EpisodeNum: w.EpisodeNum, GroupName: w.GroupName,
	}, nil
}

// NewIdentifyCache constructs the (ed2k, size) result cache that
// IdentifyOrchestrator looks up before calling the identify service.
func NewIdentifyCache(ctx context.Context, backend cache.Backend, cfg cache.Config) (*cache.Cache[identify.AnimeInfo], error) {
	return cache.New[identify.AnimeInfo](ctx, backend, identifyCodec{}, cfg, nil)
}

// IdentifyOrchestrator implements spec §4.10's "Identify orchestrator"
// pattern: resolve ED2K+size via the hash-cache service, cache lookup
// on (ed2k, size), call the identification service on miss, persist,
// return — with errors carrying full path/ed2k context.
type IdentifyOrchestrator struct {
	hashes  *HashCacheService
	results *cache.Cache[identify.AnimeInfo]
	service *identify.Service
}

func NewIdentifyOrchestrator(hashes *HashCacheService, results *cache.Cache[identify.AnimeInfo], service *identify.Service) *IdentifyOrchestrator {
	return &IdentifyOrchestrator{hashes: hashes, results: results, service: service}
}

// Identify resolves path to AniDB metadata, hashing it (through the
// fingerprint cache) only if its ED2K isn't already known, and caching
// the AniDB lookup itself by (ed2k, size) so repeated identification
// of the same content never re-hits the network.
func (o *IdentifyOrchestrator) Identify(ctx context.Context, path string) (*identify.AnimeInfo, error) {
	fh, err := o.hashes.Hash(ctx, path, []hashing.Algorithm{hashing.EAlgorithm.ED2KRed()}, nil)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.KindOf(err), "hash %s for identification", path)
	}
	ed2k := fh.Digests[hashing.EAlgorithm.ED2KRed()]

	resultKey := fmt.Sprintf("%s:%d", ed2k, fh.Size)
	info, err := o.results.GetOrCompute(ctx, resultKey, func(ctx context.Context) (identify.AnimeInfo, error) {
		got, err := o.service.Identify(ctx, ed2k, fh.Size)
		if err != nil {
			return identify.AnimeInfo{}, anerr.Wrap(err, anerr.KindOf(err), "identify path=%s ed2k=%s", path, ed2k)
		}
		return *got, nil
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}
