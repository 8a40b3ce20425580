package utils

import (
	"fmt"
	"log"
	"strconv"
	"time"
)

// TimeTrack logs the elapsed time since start under the given name;
// used to profile fixed-point convergence during development.
func TimeTrack(start time.Time, name string) {
	fmt.Printf("%s took %s\n", name, time.Since(start))
}

// VerbosePrint prints only when -verbose is set.
func VerbosePrint(format string, a ...interface{}) (n int, err error) {
	if Opts().Verbose() {
		return fmt.Printf(format, a...)
	}
	return 0, nil
}

// Atoi fatals instead of returning a tuple with an error.
func Atoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalln(err)
	}
	return i
}
