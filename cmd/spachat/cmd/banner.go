package cmd

import (
	"fmt"
)

const banner = `
  ____                   _           _
 / ___| _ __   __ _  ___| |__   __ _| |_
 \___ \| '_ \ / _` + "`" + ` |/ __| '_ \ / _` + "`" + ` | __|
  ___) | |_) | (_| | (__| | | | (_| | |_
 |____/| .__/ \__,_|\___|_| |_|\__,_|\__|
       |_|
`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Retail Chat Service - Version %s\x1b[0m\n\n", Version)
}
