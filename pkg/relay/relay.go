package relay

import (
	"context"
	"fmt"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/ordermesh/ordermesh/pkg/event"
)

// DefaultTopic is the gossipsub topic carrying order announcements.
const DefaultTopic = "orders/38383/1"

type Config struct {
	ListenAddr string   // multiaddr, empty for ephemeral
	Bootstrap  []string // multiaddrs of peers to dial at startup
	Topic      string   // defaults to DefaultTopic
	Logger     *zap.SugaredLogger
}

// Service is the pub/sub adapter: it owns the libp2p host, the order topic
// and the subscription, and feeds every delivery through the Pipeline.
type Service struct {
	*Pipeline

	h     host.Host
	ps    *pubsub.PubSub
	topic *pubsub.Topic
	sub   *pubsub.Subscription
	log   *zap.SugaredLogger
}

func NewService(ctx context.Context, cfg Config, pipe *Pipeline) (*Service, error) {
	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, fmt.Errorf("listen addr: %w", err)
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, err
	}

	s := &Service{Pipeline: pipe, h: h, ps: ps, log: cfg.Logger}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil && cfg.Logger != nil {
			cfg.Logger.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	topicName := cfg.Topic
	if topicName == "" {
		topicName = DefaultTopic
	}
	if s.topic, err = ps.Join(topicName); err != nil {
		return nil, err
	}
	if s.sub, err = s.topic.Subscribe(); err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.Infow("relay_ready",
			"peer", h.ID().String(),
			"listen", cfg.ListenAddr,
			"topic", topicName)
	}
	return s, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	return h.Connect(ctx, *info)
}

func (s *Service) Host() host.Host { return s.h }

func (s *Service) Close() error {
	s.sub.Cancel()
	return s.h.Close()
}

// Publish broadcasts a signed event on the order topic. The event must be
// signed already; transport failures propagate to the caller, retry is the
// caller's decision.
func (s *Service) Publish(ctx context.Context, ev *event.Event) error {
	data, err := event.Marshal(ev)
	if err != nil {
		return err
	}
	return s.topic.Publish(ctx, data)
}

// Run consumes the subscription until ctx is done. Deliveries are handled
// strictly in order, one at a time; the pipeline never blocks on I/O other
// than the journal write.
func (s *Service) Run(ctx context.Context) error {
	for {
		msg, err := s.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.HandleRaw(msg.Data)
	}
}
