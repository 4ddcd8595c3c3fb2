package main

import (
	logger "github.com/sirupsen/logrus"
)

// UTCFormatter stamps every entry in UTC
type UTCFormatter struct {
	logger.Formatter
}

func (u UTCFormatter) Format(e *logger.Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return u.Formatter.Format(e)
}

// createLogger builds the run's logger at the named level
func createLogger(levelName string) (*logger.Logger, error) {
	log := logger.New()
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	customFormatter := new(logger.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05.000"
	customFormatter.FullTimestamp = true
	log.SetFormatter(UTCFormatter{customFormatter})
	return log, nil
}
