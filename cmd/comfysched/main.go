// Command comfysched runs the ComfyUI job scheduler: the directory
// monitor, the job executor, and the operator control API, either
// individually or all together.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
