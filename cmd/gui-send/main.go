// Command gui-send is the desktop front-end for the sender engine.
package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/qcent/lanxfer/internal/config"
	"github.com/qcent/lanxfer/internal/conflict"
	"github.com/qcent/lanxfer/internal/counters"
	"github.com/qcent/lanxfer/internal/logging"
	"github.com/qcent/lanxfer/internal/transfer"
	"github.com/qcent/lanxfer/internal/ui"
)

const settingsPath = "sender.settings"

func main() {
	if runtime.GOOS == "windows" && strings.TrimSpace(os.Getenv("FYNE_DRIVER")) == "" {
		os.Setenv("FYNE_DRIVER", "software")
	}

	settings, err := config.LoadSenderSettings(settingsPath)
	if err != nil {
		settings = config.DefaultSenderSettings()
	}

	a := app.New()
	a.Settings().SetTheme(ui.NewCustomTheme())
	w := a.NewWindow("lanxfer sender")

	hostEntry := widget.NewEntry()
	hostEntry.SetText(settings.Host)
	portEntry := widget.NewEntry()
	portEntry.SetText(settings.Port)
	pathEntry := widget.NewEntry()
	pathEntry.SetText(settings.LastPath)
	pathEntry.SetPlaceHolder("file or directory to send")

	chooseFileBtn := widget.NewButton("Choose file...", func() {
		dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			defer r.Close()
			pathEntry.SetText(r.URI().Path())
		}, w)
	})
	chooseDirBtn := widget.NewButton("Choose folder...", func() {
		dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
			if err != nil || u == nil {
				return
			}
			pathEntry.SetText(u.Path())
		}, w)
	})

	prog := ui.NewProgressIndicator()
	logView := logging.NewLogView()
	runUI := func(fn func()) { fyne.Do(fn) }

	var sentCounters counters.Sent
	var resolver conflict.Resolver = conflict.NewUIResolver(&sentCounters.Conflict, func() bool { return sentCounters.Canceled.Load() })

	logger := logging.New(uiWriter{logView: logView, runUI: runUI}, logging.Info)
	sender := transfer.NewSender(&sentCounters, resolver, logger)

	go watchConflicts(&sentCounters, w, runUI)

	var startBtn, stopBtn *widget.Button
	transferRunning := false

	startBtn = widget.NewButton("Send", func() {
		if transferRunning {
			return
		}
		host := strings.TrimSpace(hostEntry.Text)
		if err := config.ValidateHost(host); err != nil {
			dialog.ShowError(err, w)
			return
		}
		if err := config.ValidatePort(portEntry.Text); err != nil {
			dialog.ShowError(err, w)
			return
		}
		port, _ := strconv.Atoi(strings.TrimSpace(portEntry.Text))
		path := strings.TrimSpace(pathEntry.Text)
		if path == "" {
			dialog.ShowError(fmt.Errorf("choose a file or folder first"), w)
			return
		}

		sentCounters.Reset()
		transferRunning = true
		startBtn.Disable()
		stopBtn.Enable()
		prog.SetStatus("Sending...")

		go func() {
			info, err := os.Stat(path)
			var errs []error
			if err != nil {
				errs = append(errs, err)
			} else if info.IsDir() {
				errs = sender.SendDirectory(path, host, port)
			} else {
				errs = sendSingleFile(sender, path, host, port)
			}
			runUI(func() {
				transferRunning = false
				startBtn.Enable()
				stopBtn.Disable()
				if len(errs) > 0 {
					prog.SetStatus(fmt.Sprintf("Finished with %d error(s)", len(errs)))
				} else {
					prog.SetStatus("Done")
				}
			})
		}()
	})
	stopBtn = widget.NewButton("Cancel", func() {
		sentCounters.Canceled.Store(true)
	})
	stopBtn.Disable()
	startBtn.SetIcon(theme.ConfirmIcon())
	stopBtn.SetIcon(theme.CancelIcon())

	form := widget.NewForm(
		&widget.FormItem{Text: "Host", Widget: hostEntry},
		&widget.FormItem{Text: "Port", Widget: portEntry},
		&widget.FormItem{Text: "Path", Widget: container.NewBorder(nil, nil, nil, container.NewHBox(chooseFileBtn, chooseDirBtn), pathEntry)},
	)
	buttons := container.NewHBox(startBtn, stopBtn)
	top := container.NewVBox(form, buttons, prog)

	tracker := counters.NewSpeedTracker(200)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			snap := sentCounters.Snapshot()
			rate := tracker.Sample(snap.BytesSent)
			runUI(func() { prog.SetProgress(0, rate, 0, snap.BytesSent) })
		}
	}()

	w.SetContent(container.NewBorder(top, nil, nil, nil, logView.CanvasObject()))
	w.Resize(fyne.NewSize(float32(settings.WindowWidth), float32(settings.WindowHeight)))

	w.SetCloseIntercept(func() {
		settings.Host = strings.TrimSpace(hostEntry.Text)
		settings.Port = strings.TrimSpace(portEntry.Text)
		settings.LastPath = strings.TrimSpace(pathEntry.Text)
		size := w.Content().Size()
		settings.WindowWidth = int(size.Width)
		settings.WindowHeight = int(size.Height)
		if err := config.SaveSenderSettings(settingsPath, settings); err != nil {
			fmt.Fprintf(os.Stderr, "saving settings: %v\n", err)
		}
		w.Close()
	})

	w.ShowAndRun()
}

func sendSingleFile(sender *transfer.Sender, path, host string, port int) []error {
	idx := strings.LastIndexAny(path, `/\`)
	root := "."
	if idx >= 0 {
		root = path[:idx]
	}
	if err := sender.SendFile(transfer.Request{AbsPath: path, Root: root}, host, port); err != nil {
		return []error{err}
	}
	return nil
}

// watchConflicts bridges the sender's counters.Slot conflicts to a modal
// dialog, as required by the UIResolver polling loop.
func watchConflicts(c *counters.Sent, win fyne.Window, runUI func(func())) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	shown := false
	for range ticker.C {
		pending := c.Conflict.Pending()
		if pending == nil {
			shown = false
			continue
		}
		if shown {
			continue
		}
		shown = true
		info := *pending
		runUI(func() {
			ui.ShowConflictDialog(win, info.Name, info.RemoteSize, info.LocalSize, func(d counters.Decision) {
				c.Conflict.Answer(d)
			})
		})
	}
}

type uiWriter struct {
	logView *logging.LogView
	runUI   func(func())
}

func (u uiWriter) Write(p []byte) (int, error) {
	line := string(p)
	level := logging.Info
	switch {
	case strings.Contains(line, "ERROR"), strings.Contains(line, "FATAL"):
		level = logging.Error
	case strings.Contains(line, "WARN"):
		level = logging.Warn
	case strings.Contains(line, "DEBUG"):
		level = logging.Debug
	}
	u.runUI(func() { u.logView.Append(level, strings.TrimRight(line, "\n")) })
	return len(p), nil
}
