package draft

import (
	"encoding/json"
	"sync"

	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	subscriberBuffer = 100
	recentPerVenue   = 50
)

// KotStreamService is the server side of tablepos.draft.v1.KotStream.
// Requests and events are google.protobuf.Struct values so kitchen displays
// can consume the feed with any protobuf runtime.
type KotStreamService interface {
	StreamKots(req *structpb.Struct, stream grpc.ServerStream) error
}

var kotStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: "tablepos.draft.v1.KotStream",
	HandlerType: (*KotStreamService)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamKots",
			Handler:       streamKotsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tablepos/draft/v1/kot_stream.proto",
}

func streamKotsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(KotStreamService).StreamKots(req, stream)
}

type kotSubscriber struct {
	restaurantID string
	ch           chan *structpb.Struct
}

// KotStreamServer fans KOT events out to connected kitchen displays. New
// subscribers first receive the most recent events for their restaurant.
type KotStreamServer struct {
	logger aqm.Logger

	mu          sync.Mutex
	subscribers map[string]*kotSubscriber
	recent      map[string][]*structpb.Struct
}

func NewKotStreamServer(logger aqm.Logger) *KotStreamServer {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &KotStreamServer{
		logger:      logger,
		subscribers: make(map[string]*kotSubscriber),
		recent:      make(map[string][]*structpb.Struct),
	}
}

// RegisterGRPCService registers this service with the gRPC server (aqm.GRPCServiceRegistrar interface)
func (s *KotStreamServer) RegisterGRPCService(server *grpc.Server) {
	server.RegisterService(&kotStreamServiceDesc, s)
}

func (s *KotStreamServer) StreamKots(req *structpb.Struct, stream grpc.ServerStream) error {
	restaurantID := req.GetFields()["restaurant_id"].GetStringValue()
	if restaurantID == "" {
		return status.Error(codes.InvalidArgument, "restaurant_id is required")
	}

	ctx := stream.Context()
	id := uuid.NewString()
	sub := &kotSubscriber{restaurantID: restaurantID, ch: make(chan *structpb.Struct, subscriberBuffer)}

	s.mu.Lock()
	s.subscribers[id] = sub
	backlog := append([]*structpb.Struct(nil), s.recent[restaurantID]...)
	s.mu.Unlock()

	s.logger.Info("new kot stream subscriber", "subscriber_id", id, "restaurant_id", restaurantID)

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
		close(sub.ch)
		s.logger.Info("kot stream subscriber disconnected", "subscriber_id", id)
	}()

	for _, evt := range backlog {
		if err := stream.SendMsg(evt); err != nil {
			s.logger.Errorf("failed to send backlog event: %v", err)
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-sub.ch:
			if err := stream.SendMsg(evt); err != nil {
				s.logger.Errorf("failed to send kot event: %v", err)
				return err
			}
		}
	}
}

// Broadcast records the event and sends it to the restaurant's subscribers.
// Slow subscribers miss events instead of blocking the caller.
func (s *KotStreamServer) Broadcast(restaurantID string, evt *structpb.Struct) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := append(s.recent[restaurantID], evt)
	if len(recent) > recentPerVenue {
		recent = recent[len(recent)-recentPerVenue:]
	}
	s.recent[restaurantID] = recent

	for id, sub := range s.subscribers {
		if sub.restaurantID != restaurantID {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			s.logger.Info("subscriber channel full, dropping event", "subscriber_id", id)
		}
	}
}

func (s *KotStreamServer) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// toStruct converts a JSON event payload into a protobuf Struct.
func toStruct(payload []byte) (*structpb.Struct, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
