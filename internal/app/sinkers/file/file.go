package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/opensky-lab/flightpipe/internal/app"
	"github.com/sirupsen/logrus"
)

type FileSinker struct {
	Log        *logrus.Logger
	fRawStates *os.File
}

func New(log *logrus.Logger) app.RawSink {
	return &FileSinker{Log: log}
}

func (s *FileSinker) Init(ctx context.Context, params interface{}) error {
	parameters := params.(Configuration)

	if _, err := os.Stat("log"); os.IsNotExist(err) {
		err := os.Mkdir("log", os.ModePerm)
		if err != nil {
			s.Log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Unable to create folder 'log'")
			return err
		}
	}

	fRawStates, err := os.OpenFile(filepath.Join("log", parameters.Outputraw),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		s.Log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": err,
		}).Error("Unable to Open file")
		return err
	}
	s.fRawStates = fRawStates

	return nil
}

func (s *FileSinker) Sink(ctx context.Context, t time.Time, states []app.StateVector) error {
	if s.fRawStates == nil {
		return errors.New("no raw states file for storing data")
	}

	w := bufio.NewWriter(s.fRawStates)
	defer func() {
		w.Flush()
	}()

	if len(states) == 0 {
		_, errWS := w.WriteString(t.String() + "\n" + "No state vectors" + "\n====================================\n")
		return errWS
	}

	var buffer bytes.Buffer
	marshal, err := json.Marshal(states)
	if err != nil {
		return err
	}
	buffer.Write(marshal)

	n, errWS := w.WriteString(t.String() + " Raw states\n" + buffer.String() + "\n====================================\n")
	if errWS != nil {
		return errWS
	}
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"length": fmt.Sprintf("wrote %d bytes", n),
	}).Debug("Wrote")

	return nil
}
