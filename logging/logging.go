// Package logging writes operational messages to the standard logger and,
// when ROLLBAR_TOKEN is configured, reports them to Rollbar.
package logging

import (
	"fmt"
	"log"
	"sync/atomic"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/rollbar/rollbar-go"
	rollbarErrors "github.com/rollbar/rollbar-go/errors"
)

var enabled atomic.Bool

// Init configures Rollbar from the environment. Without a token only std log is used.
func Init() {
	token := config.Config("ROLLBAR_TOKEN")
	if token == "" {
		log.Println("⚠️ ROLLBAR_TOKEN not set, error reporting goes to stdout only")
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(config.Config("APP_ENV"))
	rollbar.SetServerRoot("github.com/anjiri1684/tutor_marketplace")
	rollbar.SetStackTracer(rollbarErrors.StackTracer)
	enabled.Store(true)
	log.Println("✅ Rollbar error reporting enabled")
}

// Close flushes queued Rollbar items.
func Close() {
	if enabled.Load() {
		rollbar.Close()
	}
}

func report(level, msg string, err error, extras map[string]interface{}) {
	if !enabled.Load() {
		return
	}
	args := []interface{}{msg}
	if err != nil {
		args = append(args, err)
	}
	if extras != nil {
		args = append(args, extras)
	}
	rollbar.Log(level, args...)
}

func Error(msg string, err error, extras map[string]interface{}) {
	log.Printf("🔥 %s: %v %v", msg, err, fields(extras))
	report(rollbar.ERR, msg, err, extras)
}

func Warn(msg string, err error, extras map[string]interface{}) {
	log.Printf("⚠️ %s: %v %v", msg, err, fields(extras))
	report(rollbar.WARN, msg, err, extras)
}

func Info(msg string, extras map[string]interface{}) {
	log.Printf("ℹ️ %s %v", msg, fields(extras))
	report(rollbar.INFO, msg, nil, extras)
}

func fields(extras map[string]interface{}) string {
	if len(extras) == 0 {
		return ""
	}
	return fmt.Sprint(extras)
}
