package track

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log"
	"os"

	"github.com/paulmach/orb/geojson"
)

// ReadStream decodes newline-delimited geojson features from reader.
// Each feature is passed through callback, if any; callback errors are sent
// on the error channel and the feature is dropped. closeCh fires once the
// reader is exhausted.
func ReadStream(reader io.Reader, callback func(*geojson.Feature) (*geojson.Feature, error)) (chan *geojson.Feature, chan error, chan struct{}) {
	featureChan := make(chan *geojson.Feature)
	errChan := make(chan error)
	closeCh := make(chan struct{}, 1)

	breader := bufio.NewReader(reader)

	go func() {
		for {
			read, err := breader.ReadBytes('\n')
			eof := errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF)
			if err != nil && !eof {
				errChan <- err
				closeCh <- struct{}{}
				return
			}

			if line := bytes.TrimSpace(read); len(line) > 0 {
				feature, decodeErr := geojson.UnmarshalFeature(line)
				switch {
				case decodeErr != nil:
					errChan <- decodeErr
				case callback != nil:
					out, cbErr := callback(feature)
					if cbErr != nil {
						errChan <- cbErr
					} else if out != nil {
						featureChan <- out
					}
				default:
					featureChan <- feature
				}
			}

			if eof {
				closeCh <- struct{}{}
				return
			}
		}
	}()

	return featureChan, errChan, closeCh
}

// ReadFixes collects the valid point fixes from reader. Invalid lines are
// logged and skipped.
func ReadFixes(reader io.Reader, logger *log.Logger) Fixes {
	if logger == nil {
		logger = log.Default()
	}
	fixes := Fixes{}
	featureCh, errCh, closeCh := ReadStream(reader, func(f *geojson.Feature) (*geojson.Feature, error) {
		if err := Validate(f); err != nil {
			return nil, err
		}
		return f, nil
	})
loop:
	for {
		select {
		case f := <-featureCh:
			fixes = append(fixes, &Fix{f})
		case err := <-errCh:
			logger.Println("WARN: skipping feature:", err)
		case <-closeCh:
			break loop
		}
	}
	return fixes
}
