// Command screencap is the capture host: an interactive terminal front end
// over a software-rendered scene, plus headless commands for scripted
// captures and settings.
//
//	screencap run                      # interactive, hotkeys 1-5
//	screencap shoot --mode 360 --stereo
//	screencap settings set downscalerate 3
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
