// Command imagestudio generates and edits images with OpenRouter models.
package main

import "github.com/diogo/imagestudio/internal/commands"

func main() {
	commands.Execute()
}
