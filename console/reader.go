package console

import (
	"errors"
	"fmt"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
)

// Reader prompts for commands until quit or Ctrl-C.
func Reader(c *Console, log *logrus.Logger) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(Complete)

	for {
		command, err := line.Prompt("sp> ")
		if err == nil {
			line.AppendHistory(command)
			quit, err := c.Process(command)
			if err != nil {
				_, _ = fmt.Fprintln(c.out, "Error: "+err.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		log.WithError(err).Error("error reading line")
		return
	}
}
