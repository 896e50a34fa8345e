package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/asanchezr/biblioteca-service/config"
	"github.com/asanchezr/biblioteca-service/internal/handler"
	"github.com/asanchezr/biblioteca-service/internal/repository"
	"github.com/asanchezr/biblioteca-service/internal/server"
	"github.com/asanchezr/biblioteca-service/internal/service"
	"github.com/asanchezr/biblioteca-service/migrations"
	"github.com/asanchezr/biblioteca-service/pkg/kafka"
	"github.com/asanchezr/biblioteca-service/pkg/logger"
	"github.com/asanchezr/biblioteca-service/pkg/postgres"
)

func Run(cfg config.Config) {
	log := logger.NewLogger(cfg.Log, "biblioteca")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}

	memberStore, err := repository.NewMemberStore(db, log)
	if err != nil {
		log.Fatal("member store", zap.Error(err))
	}
	bookStore, err := repository.NewBookStore(db, log)
	if err != nil {
		log.Fatal("book store", zap.Error(err))
	}
	copyStore, err := repository.NewCopyStore(db, log)
	if err != nil {
		log.Fatal("copy store", zap.Error(err))
	}
	loanStore, err := repository.NewLoanStore(db, log)
	if err != nil {
		log.Fatal("loan store", zap.Error(err))
	}

	memberSvc, err := service.NewMemberService(ctx, memberStore, log)
	if err != nil {
		log.Fatal("member service", zap.Error(err))
	}
	catalogSvc, err := service.NewCatalogService(ctx, bookStore, log)
	if err != nil {
		log.Fatal("catalog service", zap.Error(err))
	}
	copySvc, err := service.NewCopyService(ctx, copyStore, catalogSvc, log)
	if err != nil {
		log.Fatal("copy service", zap.Error(err))
	}

	var lendingOpts []service.LendingOption
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		defer producer.Close() //nolint:errcheck
		lendingOpts = append(lendingOpts, service.WithProducer(producer))
	}
	lendingSvc, err := service.NewLendingService(ctx, loanStore, memberSvc, copySvc, log, lendingOpts...)
	if err != nil {
		log.Fatal("lending service", zap.Error(err))
	}

	h := handler.New(memberSvc, catalogSvc, copySvc, lendingSvc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Kafka.Enabled() {
		consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.LoanConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		g.Go(func() error {
			defer consumer.Close() //nolint:errcheck
			if err := kafka.Consume(ctx, consumer, handler.NewConsumer(lendingSvc.RecordLoanEvent, log), kafka.LoanTopic); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Debug("Graceful shutdown")
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		return srv.Stop(closeCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("run", zap.Error(err))
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
