//go:build !linux

package servo

import "fmt"

func openPWM(chip string, channel int) (pwmChannel, error) {
	return nil, fmt.Errorf("servo: pwm unsupported on this platform")
}
