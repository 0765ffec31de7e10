// Command gui-receive is the desktop front-end for the receiver engine.
package main

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/qcent/lanxfer/internal/config"
	"github.com/qcent/lanxfer/internal/counters"
	"github.com/qcent/lanxfer/internal/discovery"
	"github.com/qcent/lanxfer/internal/logging"
	"github.com/qcent/lanxfer/internal/transfer"
	"github.com/qcent/lanxfer/internal/ui"
)

const settingsPath = "recvr.settings"

func main() {
	if runtime.GOOS == "windows" && strings.TrimSpace(os.Getenv("FYNE_DRIVER")) == "" {
		os.Setenv("FYNE_DRIVER", "software")
	}

	settings, err := config.LoadReceiverSettings(settingsPath)
	if err != nil {
		settings = config.DefaultReceiverSettings()
	}

	a := app.New()
	a.Settings().SetTheme(ui.NewCustomTheme())
	w := a.NewWindow("lanxfer receiver")

	saveDirEntry := widget.NewEntry()
	saveDirEntry.SetText(settings.SaveDir)
	portEntry := widget.NewEntry()
	portEntry.SetText(settings.Port)
	overwriteCheck := widget.NewCheck("Overwrite differing files", nil)
	overwriteCheck.SetChecked(settings.Overwrite)

	status := ui.NewConnectionStatus()
	receivedLab := widget.NewLabel("Received: 0")
	rejectedLab := widget.NewLabel("Rejected: 0")
	failedLab := widget.NewLabel("Failed: 0")
	dataLab := widget.NewLabel("Data: 0 B")
	logView := logging.NewLogView()
	runUI := func(fn func()) { fyne.Do(fn) }

	var recvCounters counters.Received
	var listener *net.TCPListener
	var disco *discovery.Server

	pickDirBtn := widget.NewButton("Choose folder...", func() {
		d := dialog.NewFolderOpen(func(u fyne.ListableURI, err error) {
			if err != nil || u == nil {
				return
			}
			saveDirEntry.SetText(u.Path())
		}, w)
		d.Show()
	})

	logger := logging.New(uiWriter{logView: logView, runUI: runUI}, logging.Info)

	var startBtn, stopBtn *widget.Button
	startBtn = widget.NewButton("Start", func() {
		if err := config.ValidatePort(portEntry.Text); err != nil {
			dialog.ShowError(err, w)
			return
		}
		p, err := strconv.Atoi(strings.TrimSpace(portEntry.Text))
		if err != nil {
			dialog.ShowError(fmt.Errorf("invalid port: %w", err), w)
			return
		}
		recvCounters.Overwrite.Store(overwriteCheck.Checked)
		recvCounters.Canceled.Store(false)
		recvCounters.InProgress.Store(true)

		listener, err = net.ListenTCP("tcp", &net.TCPAddr{Port: p})
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		disco = &discovery.Server{ServicePort: p}
		disco.Start()

		receiver := transfer.NewReceiver(strings.TrimSpace(saveDirEntry.Text), &recvCounters, logger)
		go receiver.Serve(listener)

		status.SetListening(true, p)
		startBtn.Disable()
		stopBtn.Enable()
	})
	stopBtn = widget.NewButton("Stop", func() {
		recvCounters.Canceled.Store(true)
		if listener != nil {
			listener.Close()
		}
		if disco != nil {
			disco.Stop()
		}
		status.SetListening(false, 0)
		startBtn.Enable()
		stopBtn.Disable()
	})
	stopBtn.Disable()

	go func() {
		ticker := time.NewTicker(333 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			snap := recvCounters.Snapshot()
			runUI(func() {
				receivedLab.SetText(fmt.Sprintf("Received: %d", snap.ReceivedFiles))
				rejectedLab.SetText(fmt.Sprintf("Rejected: %d", snap.RejectedFiles))
				failedLab.SetText(fmt.Sprintf("Failed: %d", snap.FailedFiles))
				dataLab.SetText("Data: " + counters.FormatBytes(float64(snap.DataReceived)))
			})
		}
	}()

	form := widget.NewForm(
		&widget.FormItem{Text: "Save directory", Widget: container.NewBorder(nil, nil, nil, pickDirBtn, saveDirEntry)},
		&widget.FormItem{Text: "Port", Widget: portEntry},
		&widget.FormItem{Text: "", Widget: overwriteCheck},
	)
	buttons := container.NewHBox(startBtn, stopBtn)
	metrics := container.NewGridWithColumns(2,
		container.NewVBox(receivedLab, rejectedLab),
		container.NewVBox(failedLab, dataLab),
	)
	top := container.NewVBox(form, buttons, status, metrics, widget.NewLabel("Log:"))
	w.SetContent(container.NewBorder(top, nil, nil, nil, logView.CanvasObject()))
	w.Resize(fyne.NewSize(float32(settings.WindowWidth), float32(settings.WindowHeight)))

	w.SetCloseIntercept(func() {
		settings.SaveDir = strings.TrimSpace(saveDirEntry.Text)
		settings.Port = strings.TrimSpace(portEntry.Text)
		settings.Overwrite = overwriteCheck.Checked
		size := w.Content().Size()
		settings.WindowWidth = int(size.Width)
		settings.WindowHeight = int(size.Height)
		if err := config.SaveReceiverSettings(settingsPath, settings); err != nil {
			fmt.Fprintf(os.Stderr, "saving settings: %v\n", err)
		}
		w.Close()
	})

	w.ShowAndRun()
}

// uiWriter adapts logging.Logger's io.Writer sink to the Fyne log pane,
// parsing back the level logging.Logger already stamped into the line.
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
