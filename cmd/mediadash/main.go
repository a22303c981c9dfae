// Command mediadash serves the media-mention analytics dashboard and runs
// one-shot analyses of CSV exports.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
