// Command roku-cli deploys, signs and rekeys Roku channels on a developer-mode device.
package main

import "github.com/oshokin/roku-cli/cmd/roku-cli/cmd"

func main() {
	cmd.Execute()
}
