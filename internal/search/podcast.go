package search

import (
	"context"
	"errors"
	"strconv"

	"github.com/hitoshi/podsearch/internal/feed"
	"github.com/hitoshi/podsearch/internal/itunes"
	"github.com/hitoshi/podsearch/internal/model"
	"github.com/hitoshi/podsearch/internal/normalize"
)

// MsgPodcastNotFound はcollectionIdに一致するポッドキャストがない場合のメッセージ。
const MsgPodcastNotFound = "Podcast not found"

// Lookup はcollectionIdでポッドキャストを引く上流クライアント。
type Lookup interface {
	GetPodcastByID(ctx context.Context, collectionID int64) model.Result[itunes.PodcastResponse]
}

// EpisodeLoader はポッドキャストのフィードからエピソードを読み込む。*feed.EpisodeLoaderが満たす。
type EpisodeLoader interface {
	Load(ctx context.Context, p *model.Podcast) ([]model.Episode, error)
}

// PodcastEpisodes はポッドキャストとそのフィードのエピソード。
type PodcastEpisodes struct {
	Podcast  model.Podcast   `json:"podcast"`
	Episodes []model.Episode `json:"episodes"`
}

// PodcastService は個別ポッドキャストの取得とフィードエピソードの読み込みを行う。
type PodcastService struct {
	lookup    Lookup
	loader    EpisodeLoader
	saver     Saver
	submitter Submitter
}

// NewPodcastService はPodcastServiceを生成する。
func NewPodcastService(lookup Lookup, loader EpisodeLoader, saver Saver, submitter Submitter) *PodcastService {
	return &PodcastService{lookup: lookup, loader: loader, saver: saver, submitter: submitter}
}

// Podcast はcollectionIdのポッドキャストを正規化して返す。
// 返すエラーは常に*model.AppErrorで、該当なしはNO_RESULTS。
func (s *PodcastService) Podcast(ctx context.Context, collectionID int64) (*model.Podcast, error) {
	res := s.lookup.GetPodcastByID(ctx, collectionID)
	if !res.Success {
		return nil, res.Error
	}
	if len(res.Data.Results) == 0 {
		return nil, model.NewNoResultsError(MsgPodcastNotFound)
	}
	p := normalize.ToPodcast(res.Data.Results[0])
	return &p, nil
}

// Episodes はポッドキャストのRSSフィードを読み込み、エピソードを保存ジョブとして投入してから返す。
func (s *PodcastService) Episodes(ctx context.Context, collectionID int64) (*PodcastEpisodes, error) {
	p, err := s.Podcast(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	episodes, err := s.loader.Load(ctx, p)
	if errors.Is(err, feed.ErrNoFeedURL) {
		return nil, model.NewNoResultsError("Podcast has no feed")
	}
	if err != nil {
		return nil, model.NewAPIError(err)
	}

	if len(episodes) > 0 {
		name := "save_feed_episodes_" + strconv.FormatInt(collectionID, 10)
		// 投入失敗はディスパッチャーがログ済み
		_ = s.submitter.Submit(name, func(ctx context.Context) error {
			_, err := s.saver.SaveEpisodes(ctx, episodes)
			return err
		})
	}

	return &PodcastEpisodes{Podcast: *p, Episodes: episodes}, nil
}
