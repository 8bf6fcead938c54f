package node

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// confirmAction asks the user a yes or no question on the given input and
// returns true when the answer is yes.
func confirmAction(in io.Reader, actionText, deniedText string) (bool, error) {
	reader := bufio.NewReader(in)
	log.Warn(actionText)
	for {
		fmt.Print(">> ")
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return false, errors.Wrap(err, "could not read answer")
		}
		switch strings.ToUpper(strings.TrimSpace(line)) {
		case "Y":
			return true, nil
		case "N":
			log.Info(deniedText)
			return false, nil
		default:
			log.Errorf("Invalid option of %s chosen, enter Y/N", strings.TrimSpace(line))
			if err == io.EOF {
				return false, errors.Wrap(err, "could not read answer")
			}
		}
	}
}
