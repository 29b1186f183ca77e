package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/message"
	"github.com/trezcool/darasa/core/stats"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/cache"
	"github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/services/storage"
	"github.com/trezcool/darasa/storage/database"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/storage/database/sqlboiler"
	"github.com/trezcool/darasa/storage/database/sqlx"
)

type repositories struct {
	users      user.Repository
	classrooms classroom.Repository
	coursework coursework.Repository
	messages   message.Repository
	stats      stats.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB & repos
	var repos repositories
	if conf.Database.Engine == "memory" {
		logger.Warn("using the in-memory database: data is lost on shutdown")
		repos = newMemoryRepositories()
	} else {
		db, err := database.Setup(conf, dbLogger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		repos = newSQLRepositories(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var statsCache stats.Cache
	if conf.Redis.Address != "" {
		client := cachesvc.NewRedisClient(conf)
		defer client.Close()
		statsCache = cachesvc.NewRedisCache(client, "stats", conf.Redis.StatsTTL)
	}
	statsSvc := stats.NewService(repos.stats, statsCache, logger)

	fileStorage, err := filesvc.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	usrSvc := user.NewService(repos.users, mailSvc, statsSvc, conf)
	roomSvc := classroom.NewService(repos.classrooms, usrSvc, mailSvc, statsSvc, logger)
	workSvc := coursework.NewService(repos.coursework, roomSvc, fileStorage, statsSvc)
	msgSvc := message.NewService(repos.messages, usrSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		ClassroomSvc:  roomSvc,
		CourseworkSvc: workSvc,
		MessageSvc:    msgSvc,
		StatsSvc:      statsSvc,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// newSQLRepositories splits the repositories between sqlboiler (scoped CRUD) and sqlx (messages & aggregates).
func newSQLRepositories(db *sql.DB) repositories {
	xdb := sqlx.NewDb(db, "postgres")
	return repositories{
		users:      boiledrepos.NewUserRepository(db),
		classrooms: boiledrepos.NewClassroomRepository(db),
		coursework: boiledrepos.NewCourseworkRepository(db),
		messages:   sqlxrepos.NewMessageRepository(xdb),
		stats:      sqlxrepos.NewStatsRepository(xdb),
	}
}

func newMemoryRepositories() repositories {
	db := inmemdb.Open()
	return repositories{
		users:      inmemdb.NewUserRepository(db),
		classrooms: inmemdb.NewClassroomRepository(db),
		coursework: inmemdb.NewCourseworkRepository(db),
		messages:   inmemdb.NewMessageRepository(db),
		stats:      inmemdb.NewStatsRepository(db),
	}
}
