package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/user"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare sets the rollbar person from the first user.User or access.Identity among `args`.
// expected fmt: msg | error, map[string]interface{}, user.User | access.Identity
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	person, newArgs := rollbarItem(msg, args)
	if person != nil {
		rollbar.SetPerson(person.Id, person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	return newArgs
}

// rollbarItem splits `args` into the person and the item arguments.
// The maps are merged into a single extras map, which also carries the role of the person.
func rollbarItem(msg string, args []interface{}) (*rollbar.Person, []interface{}) {
	var (
		person *rollbar.Person
		role   access.Role
		extras map[string]interface{}
	)
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if person == nil && a.ID != "" {
				person = &rollbar.Person{Id: a.ID, Username: a.Name, Email: a.Email}
				role = a.Role
			}
		case access.Identity:
			if person == nil && a.UserID != "" {
				person = &rollbar.Person{Id: a.UserID}
				role = a.Role
			}
		case map[string]interface{}:
			if extras == nil {
				extras = make(map[string]interface{}, len(a)+1)
			}
			for k, v := range a {
				extras[k] = v
			}
		default:
			newArgs = append(newArgs, arg)
		}
	}
	if role.IsValid() {
		if extras == nil {
			extras = make(map[string]interface{}, 1)
		}
		extras["role"] = role.String()
	}
	if extras != nil {
		newArgs = append(newArgs, extras)
	}
	return person, newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}
