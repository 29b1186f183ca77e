package tests

import (
	"fmt"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/message"
	"github.com/trezcool/darasa/core/stats"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/services/storage"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/tests"
)

var (
	conf     *core.Config
	db       *inmemdb.DB
	app      Server
	usrRepo  user.Repository
	roomRepo classroom.Repository
	workRepo coursework.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func TestMain(m *testing.M) {
	conf = testutil.NewConfig()
	logger := testutil.NewLogger(conf)

	mediaDir, err := os.MkdirTemp("", "darasa-media-")
	if err != nil {
		fmt.Printf("os.MkdirTemp(): %v", err)
		os.Exit(1)
	}
	conf.Storage.MediaDir = mediaDir

	// set up DB & repos
	db = inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	roomRepo = inmemdb.NewClassroomRepository(db)
	workRepo = inmemdb.NewCourseworkRepository(db)

	// set up validators
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)
	if err = core.ParseEmailTemplates(); err != nil {
		fmt.Printf("core.ParseEmailTemplates(): %v", err)
		os.Exit(1)
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	statsSvc := stats.NewService(inmemdb.NewStatsRepository(db), nil, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, statsSvc, conf)
	roomSvc := classroom.NewService(roomRepo, usrSvc, mailSvc, statsSvc, logger)
	workSvc := coursework.NewService(workRepo, roomSvc, filesvc.NewDiskStorage(mediaDir, conf.Storage.MediaURL), statsSvc)
	msgSvc := message.NewService(inmemdb.NewMessageRepository(db), usrSvc)

	// set up server
	app, err = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		ClassroomSvc:   roomSvc,
		CourseworkSvc:  workSvc,
		MessageSvc:     msgSvc,
		StatsSvc:       statsSvc,
	})
	if err != nil {
		fmt.Printf("NewServer(): %v", err)
		os.Exit(1)
	}

	// run tests
	code := m.Run()

	// clean up
	if err = os.RemoveAll(mediaDir); err != nil {
		fmt.Printf("os.RemoveAll(): %v", err)
		os.Exit(1)
	}

	os.Exit(code)
}
