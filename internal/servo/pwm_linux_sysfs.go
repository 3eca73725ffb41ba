//go:build linux

package servo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"
)

// sysfsPWM drives one hardware PWM channel via /sys/class/pwm.
//
// On Raspberry Pi this needs `dtoverlay=pwm-2chan` (or equivalent) so the
// servo header pins appear as pwmchip channels. The sysfs backend is chosen
// over memory-mapped GPIO for Pi 5 compatibility.
type sysfsPWM struct {
	pwmPath  string // /sys/class/pwm/pwmchipN/pwmM
	channel  int
	periodNS uint64
	enabled  bool
}

var pwmSysfsBase = "/sys/class/pwm"

func openPWM(chip string, channel int) (pwmChannel, error) {
	if chip == "" {
		chip = "pwmchip0"
	}
	if channel < 0 {
		return nil, fmt.Errorf("servo: invalid pwm channel %d", channel)
	}
	chipPath := filepath.Join(pwmSysfsBase, chip)
	if _, err := os.Stat(chipPath); err != nil {
		return nil, fmt.Errorf("servo: %s not present (is the pwm overlay enabled?): %w", chipPath, err)
	}

	d := &sysfsPWM{
		pwmPath: filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
		channel: channel,
	}
	if err := d.ensureExported(chipPath); err != nil {
		return nil, err
	}
	// Start disabled; period/duty are programmed before the first enable.
	if err := d.writeBool("enable", false); err == nil {
		d.enabled = false
	}
	return d, nil
}

func (d *sysfsPWM) ensureExported(chipPath string) error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	exportPath := filepath.Join(chipPath, "export")
	if err := writeSysfs(exportPath, strconv.Itoa(d.channel)); err != nil {
		// Already exported by someone else is fine.
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("servo: export pwm: %w", err)
	}

	// Wait briefly for the sysfs node to appear.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("servo: pwm path not created after export: %w", err)
	}
	return nil
}

func (d *sysfsPWM) SetPeriod(ns uint64) error {
	if ns == 0 {
		return fmt.Errorf("servo: invalid period 0")
	}
	// Disable before changing the period (common sysfs requirement).
	_ = d.writeBool("enable", false)
	d.enabled = false

	if err := d.writeUint("period", ns); err != nil {
		return err
	}
	d.periodNS = ns
	return nil
}

func (d *sysfsPWM) SetDuty(ns uint64) error {
	if d.periodNS != 0 && ns > d.periodNS {
		ns = d.periodNS
	}
	if err := d.writeUint("duty_cycle", ns); err != nil {
		return err
	}
	if !d.enabled {
		if err := d.writeBool("enable", true); err != nil {
			return err
		}
		d.enabled = true
	}
	return nil
}

func (d *sysfsPWM) Close() error {
	// Zero the output so a stale commanded position does not persist.
	_ = d.writeUint("duty_cycle", 0)
	_ = d.writeBool("enable", false)
	d.enabled = false
	return nil
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, name), val)
}

// writeSysfs opens O_WRONLY without truncation flags; some sysfs attributes
// reject O_TRUNC with a confusing EACCES at open() time. Immediately after
// exporting a channel, udev may still be adjusting permissions, so transient
// EACCES/ENOENT are retried for a short window.
func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		if werr != nil && cerr != nil {
			return errors.Join(werr, cerr)
		}
		if werr != nil {
			return werr
		}
		return cerr
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) ||
		errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}
