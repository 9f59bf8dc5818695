package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fedgo/controller/pkg/controller"
	"github.com/fedgo/controller/pkg/dispatch"
	"github.com/fedgo/controller/pkg/federation"
	"github.com/fedgo/controller/pkg/idgen"
	"github.com/fedgo/controller/pkg/lineage"
	"github.com/fedgo/controller/pkg/model"
	"github.com/fedgo/controller/pkg/plugin"
	"github.com/fedgo/controller/pkg/pool"
	"github.com/fedgo/controller/pkg/registry"
	"github.com/fedgo/controller/pkg/round"
	"github.com/fedgo/controller/pkg/transport"
)

func main() {
	configPath := flag.String("config", "config/example_controller.yaml", "ControllerParams YAML path")
	listenAddr := flag.String("listen", ":50052", "address the inbound LearnerCompletedTask service listens on")
	flag.Parse()

	params, err := federation.LoadParams(*configPath)
	if err != nil {
		log.Fatalf("failed to load controller params: %v", err)
	}

	tokens, err := idgen.NewTokenMinter(params.Auth.TokenSecret)
	if err != nil {
		log.Fatalf("failed to initialize auth token minter: %v", err)
	}

	reg := registry.New(registry.Options{
		Tokens:      tokens,
		DialLearner: dialLearnerConn,
		Epochs:      params.ModelHyperparams.Epochs,
		BatchSize:   params.ModelHyperparams.BatchSize,
	})
	store := lineage.NewStore()

	disp := dispatch.New(reg, store, dialLearnerClient, params.PipelineBufferSize)

	scheduler, selector, scaler, aggregator, err := installPlugins(params)
	if err != nil {
		log.Fatalf("failed to install plug-ins: %v", err)
	}

	engine := round.New(round.Options{
		Registry:   reg,
		Lineage:    store,
		Dispatcher: disp,
		Scheduler:  scheduler,
		Selector:   selector,
		Scaler:     scaler,
		Aggregator: aggregator,
		Hyperparams: transport.Hyperparameters{
			BatchSize: params.ModelHyperparams.BatchSize,
			Optimizer: params.ModelHyperparams.Optimizer,
		},
		PercentValidation: params.ModelHyperparams.PercentValidation,
		BatchSize:         params.ModelHyperparams.BatchSize,
		SemiSync:          params.CommunicationSpecs.Protocol == federation.ProtocolSemiSynchronous,
		SemiSyncLambda:    params.CommunicationSpecs.ProtocolSpecs.SemiSyncLambda,
		SemiSyncRecompute: params.CommunicationSpecs.ProtocolSpecs.SemiSyncRecomputeNumUpdates,
	})

	poolSize := params.SchedulingPoolSize
	workers := pool.New(poolSize)

	ctl := controller.New(controller.Options{
		Registry:   reg,
		Lineage:    store,
		Pool:       workers,
		Dispatcher: disp,
		Engine:     engine,
	})

	lis, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", *listenAddr, err)
	}

	server := newLearnerCompletedTaskServer(ctl)
	go func() {
		if err := server.Serve(lis); err != nil {
			log.Printf("controllerd: server stopped: %v", err)
		}
	}()

	log.Printf("controllerd: listening on %s", *listenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("controllerd: shutting down")
	server.Stop()
	ctl.Shutdown()
}

func installPlugins(params *federation.ControllerParams) (plugin.Scheduler, plugin.Selector, plugin.ScalingFunction, plugin.AggregationFunction, error) {
	var scheduler plugin.Scheduler
	switch params.CommunicationSpecs.Protocol {
	case federation.ProtocolSynchronous, federation.ProtocolSemiSynchronous:
		scheduler = plugin.NewSynchronousScheduler()
	case federation.ProtocolAsynchronous:
		scheduler = plugin.AsynchronousScheduler{}
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown communication protocol %q", params.CommunicationSpecs.Protocol)
	}

	var aggregator plugin.AggregationFunction
	switch params.GlobalModelSpecs.AggregationRule {
	case federation.AggregationFedAvg:
		aggregator = plugin.FedAvg{}
	case federation.AggregationPWA:
		aggregator = plugin.PWA{Scheme: namedScheme(params.FHEScheme.Name)}
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown aggregation rule %q", params.GlobalModelSpecs.AggregationRule)
	}

	return scheduler, plugin.ScheduledCardinalitySelector{}, plugin.DatasetSizeScaler{}, aggregator, nil
}

type namedScheme string

func (n namedScheme) Name() string { return string(n) }

func dialLearnerConn(ep model.Endpoint) (registry.Conn, error) {
	return transport.DialLearner(target(ep))
}

func dialLearnerClient(ep model.Endpoint) (transport.LearnerClient, error) {
	return transport.DialLearner(target(ep))
}

func target(ep model.Endpoint) string {
	return fmt.Sprintf("%s:%d", ep.Host, ep.Port)
}

// newLearnerCompletedTaskServer adapts the wire request shape to the
// Controller Facade's LearnerCompletedTask call.
func newLearnerCompletedTaskServer(ctl *controller.Controller) *transport.Server {
	return transport.NewServer(func(_ context.Context, req *transport.LearnerCompletedTaskRequest) (*transport.LearnerCompletedTaskResponse, error) {
		task := model.CompletedLearningTask{
			Model: model.Model{Weights: req.Task.Model.Weights},
			ExecutionMetadata: model.ExecutionMetadata{
				GlobalIteration:       req.Task.ExecutionMetadata.GlobalIteration,
				ProcessingMsPerBatch:  req.Task.ExecutionMetadata.ProcessingMsPerBatch,
				ProcessingMsPerEpoch:  req.Task.ExecutionMetadata.ProcessingMsPerEpoch,
				PercentValidationUsed: req.Task.ExecutionMetadata.PercentValidationUsed,
			},
		}
		if err := ctl.LearnerCompletedTask(req.LearnerID, req.AuthToken, task); err != nil {
			return nil, err
		}
		return &transport.LearnerCompletedTaskResponse{Accepted: true}, nil
	})
}
