package syncer

import (
	"context"
	intErrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/certsync/certsync/utils"
	"github.com/vmihailenco/taskq/v3"
)

// ScheduledSync enqueues a sync task once per configured interval.
// OnceInPeriod keeps a slow run from stacking duplicates behind itself;
// the consumer executes one run at a time.
func ScheduledSync(syncQueue taskq.Queue) {
	var task = taskq.RegisterTask(&taskq.TaskOptions{
		Name: "certview-sync",
		Handler: func() error {
			result := SyncAllCertificates(DefaultFilterValue, DefaultAssetType, DefaultIncludes)
			InfoLogger(LogHolder{
				Metric:  strconv.Itoa(result.TotalInserted),
				Message: "Scheduled sync finished",
			})
			return nil
		},
	})

	interval := utils.SyncInterval()
	if interval <= 0 {
		InfoLogger(LogHolder{Message: "Scheduled sync disabled"})
		return
	}

	ctx := context.Background()
	enqueue := func() {
		msg := task.WithArgs(ctx)
		msg.OnceInPeriod(interval)
		err := syncQueue.Add(msg)
		switch {
		case intErrors.Is(msg.Err, taskq.ErrDuplicate):
			DebugLogger(LogHolder{Message: msg.Err.Error()})
		case err != nil:
			ErrorLogger(LogHolder{Message: err.Error()})
		case msg.Err != nil:
			ErrorLogger(LogHolder{Message: msg.Err.Error()})
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	enqueue()
	for range ticker.C {
		enqueue()
	}
}

func ProcessScheduledSyncQueue(syncQueue taskq.Queue) {
	ctx := context.Background()
	p := syncQueue.Consumer()
	DebugLogger(LogHolder{Message: "Processing items from scheduled sync queue"})
	err := p.Start(ctx)
	if err != nil {
		msg := fmt.Errorf("Starting consumer: %v", err.Error())
		ErrorLogger(LogHolder{Message: msg.Error()})
	}
}
