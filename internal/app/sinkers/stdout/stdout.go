package stdout

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/opensky-lab/flightpipe/internal/app"
	"github.com/sirupsen/logrus"
)

type StdOutSinker struct {
	Log *logrus.Logger
}

func New(log *logrus.Logger) app.RawSink {
	return &StdOutSinker{Log: log}
}

func (s *StdOutSinker) Init(ctx context.Context, params interface{}) error {
	//Nothing to do here
	return nil
}

func (s *StdOutSinker) Sink(ctx context.Context, t time.Time, states []app.StateVector) error {
	if len(states) == 0 {
		s.Log.WithContext(ctx).Info("No state vectors in this run")
		return nil
	}

	var buffer bytes.Buffer
	marshal, err := json.Marshal(states)
	if err != nil {
		return err
	}
	buffer.Write(marshal)

	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"number of states": len(states),
		"capturedAt":       t.Unix(),
	}).Info("========State vectors fetched=============")
	s.Log.WithContext(ctx).Debug("Raw states " + buffer.String())

	return nil
}
