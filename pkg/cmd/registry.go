// Package cmd provides the shared initialization helpers used by the
// taskmaster binaries.
package cmd

import (
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/actions/fileread"
	"github.com/taskmaster-io/taskmaster/pkg/actions/filewrite"
	"github.com/taskmaster-io/taskmaster/pkg/actions/httprequest"
	logaction "github.com/taskmaster-io/taskmaster/pkg/actions/log"
	"github.com/taskmaster-io/taskmaster/pkg/actions/transform"
	"github.com/taskmaster-io/taskmaster/pkg/registry"
	"github.com/taskmaster-io/taskmaster/pkg/triggers/filewatch"
	"github.com/taskmaster-io/taskmaster/pkg/triggers/kafka"
	"github.com/taskmaster-io/taskmaster/pkg/triggers/poll"
	"github.com/taskmaster-io/taskmaster/pkg/triggers/queue"
	"github.com/taskmaster-io/taskmaster/pkg/triggers/schedule"
	"github.com/taskmaster-io/taskmaster/pkg/triggers/webhook"
)

func registerActionPlugins(reg *registry.Registry, pluginsPath string) {
	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}
}

func registerTriggerPlugins(reg *registry.Registry, pluginsPath string) {
	triggerPlugins, err := reg.LoadTriggerPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range triggerPlugins {
		reg.RegisterTrigger(plugin)
	}
}

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(logaction.NewLogActionFactory())
	reg.RegisterAction(transform.NewTransformActionFactory())
	reg.RegisterAction(httprequest.NewHTTPRequestActionFactory())
	reg.RegisterAction(filewrite.NewFileWriteActionFactory())
	reg.RegisterAction(fileread.NewFileReadActionFactory())
}

func registerNativeTriggers(reg *registry.Registry) {
	reg.RegisterTrigger(schedule.NewScheduleTriggerFactory())
	reg.RegisterTrigger(webhook.NewWebhookTriggerFactory())
	reg.RegisterTrigger(queue.NewQueueTriggerFactory())
	reg.RegisterTrigger(kafka.NewKafkaTriggerFactory())
	reg.RegisterTrigger(filewatch.NewFileTriggerFactory())
	reg.RegisterTrigger(poll.NewPollTriggerFactory())
}

// NewRegistry builds a registry holding every native action and trigger
// factory plus any plugins found under pluginsPath.
func NewRegistry(log *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeTriggers(reg)
	registerNativeActions(reg)

	registerActionPlugins(reg, pluginsPath)
	registerTriggerPlugins(reg, pluginsPath)

	return reg
}
