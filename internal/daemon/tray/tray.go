package tray

import (
	"fmt"
	"log"
	"sync"

	"github.com/getlantern/systray"

	"github.com/watchfire-io/hookwatch/internal/display"
	"github.com/watchfire-io/hookwatch/internal/models"
)

const (
	maxSessionSlots = 10
	maxRequestSlots = 5
)

var (
	state      DaemonState
	onStart    func()
	onExit     func()
	listenItem *systray.MenuItem

	// Pre-allocated menu slots; systray cannot remove items.
	requestSlots  [maxRequestSlots]*systray.MenuItem
	requestAllow  [maxRequestSlots]*systray.MenuItem
	requestDeny   [maxRequestSlots]*systray.MenuItem
	requestDefer  [maxRequestSlots]*systray.MenuItem
	sessionSlots  [maxSessionSlots]*systray.MenuItem
	sessionSeen   [maxSessionSlots]*systray.MenuItem
	noPendingItem *systray.MenuItem
	noSessionItem *systray.MenuItem
	quitItem      *systray.MenuItem

	// Maps slot index to the id it currently shows
	slotMu     sync.RWMutex
	requestIDs [maxRequestSlots]string
	sessionIDs [maxSessionSlots]string

	ready   bool
	readyMu sync.Mutex
)

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called when the tray is ready (start watching here).
// onExitFn is called when the tray exits (cleanup here).
func Run(s DaemonState, onStartFn, onExitFn func()) {
	state = s
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func onReady() {
	systray.SetTemplateIcon(iconData, iconData)
	systray.SetTooltip(formatTooltip(0, 0, 0))

	header := systray.AddMenuItem("hookwatch", "")
	header.Disable()

	listenItem = systray.AddMenuItem("Metrics disabled", "")
	listenItem.Disable()

	systray.AddSeparator()

	for i := 0; i < maxRequestSlots; i++ {
		requestSlots[i] = systray.AddMenuItem("", "")
		requestAllow[i] = requestSlots[i].AddSubMenuItem("Allow", "")
		requestDeny[i] = requestSlots[i].AddSubMenuItem("Deny", "")
		requestDefer[i] = requestSlots[i].AddSubMenuItem("Answer in terminal", "")
		requestSlots[i].Hide()
	}
	noPendingItem = systray.AddMenuItem("No pending requests", "")
	noPendingItem.Disable()

	systray.AddSeparator()

	for i := 0; i < maxSessionSlots; i++ {
		sessionSlots[i] = systray.AddMenuItem("", "")
		sessionSeen[i] = sessionSlots[i].AddSubMenuItem("Mark as seen", "")
		sessionSlots[i].Hide()
	}
	noSessionItem = systray.AddMenuItem("No sessions", "")
	noSessionItem.Disable()

	systray.AddSeparator()
	quitItem = systray.AddMenuItem("Quit", "Shut down hookwatch daemon")

	readyMu.Lock()
	ready = true
	readyMu.Unlock()

	if onStart != nil {
		onStart()
	}

	if state != nil {
		if addr := state.ListenAddr(); addr != "" {
			listenItem.SetTitle(fmt.Sprintf("Metrics on %s", addr))
		}
	}
	Refresh()

	go handleClicks()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func handleClicks() {
	for i := 0; i < maxRequestSlots; i++ {
		go watchSlot(requestAllow[i].ClickedCh, func() { answerAtSlot(i, models.DecisionAllow) })
		go watchSlot(requestDeny[i].ClickedCh, func() { answerAtSlot(i, models.DecisionDeny) })
		go watchSlot(requestDefer[i].ClickedCh, func() { answerAtSlot(i, models.DecisionAsk) })
	}
	for i := 0; i < maxSessionSlots; i++ {
		go watchSlot(sessionSeen[i].ClickedCh, func() { markSeenAtSlot(i) })
	}

	for range quitItem.ClickedCh {
		if state != nil {
			state.RequestShutdown()
		}
	}
}

func watchSlot(ch <-chan struct{}, fn func()) {
	for range ch {
		fn()
	}
}

// answerAtSlot answers the request assigned to the given menu slot.
func answerAtSlot(slot int, decision models.Decision) {
	slotMu.RLock()
	id := requestIDs[slot]
	slotMu.RUnlock()

	if id == "" || state == nil {
		return
	}

	log.Printf("[tray] answering request %s: %s", id, decision)
	if err := state.Answer(id, decision); err != nil {
		log.Printf("[tray] failed to answer %s: %v", id, err)
	}
}

func markSeenAtSlot(slot int) {
	slotMu.RLock()
	id := sessionIDs[slot]
	slotMu.RUnlock()

	if id == "" || state == nil {
		return
	}
	if err := state.MarkSeen(id); err != nil {
		log.Printf("[tray] failed to mark %s seen: %v", id, err)
	}
}

// Refresh redraws the menu from the daemon state. It is a no-op until the
// tray is ready.
func Refresh() {
	readyMu.Lock()
	isReady := ready
	readyMu.Unlock()
	if !isReady || state == nil {
		return
	}

	requests := state.PendingRequests()
	sessions := state.Sessions()

	slotMu.Lock()
	for i := range requestIDs {
		requestIDs[i] = ""
		if i < len(requests) {
			requestIDs[i] = requests[i].ID
		}
	}
	for i := range sessionIDs {
		sessionIDs[i] = ""
		if i < len(sessions) {
			sessionIDs[i] = sessions[i].ID
		}
	}
	slotMu.Unlock()

	for i := 0; i < maxRequestSlots; i++ {
		if i < len(requests) {
			requestSlots[i].SetTitle(formatRequestTitle(requests[i]))
			requestSlots[i].Show()
		} else {
			requestSlots[i].Hide()
		}
	}
	if len(requests) == 0 {
		noPendingItem.Show()
	} else {
		noPendingItem.Hide()
	}

	unseen := 0
	for i, s := range sessions {
		if s.Unseen {
			unseen++
		}
		if i >= maxSessionSlots {
			continue
		}
		sessionSlots[i].SetTitle(formatSessionTitle(s))
		sessionSlots[i].Show()
		if s.Unseen {
			sessionSeen[i].Enable()
		} else {
			sessionSeen[i].Disable()
		}
	}
	for i := len(sessions); i < maxSessionSlots; i++ {
		sessionSlots[i].Hide()
	}
	if len(sessions) == 0 {
		noSessionItem.Show()
	} else {
		noSessionItem.Hide()
	}

	systray.SetTooltip(formatTooltip(len(sessions), len(requests), unseen))
}

func formatTooltip(sessions, pending, unseen int) string {
	tip := fmt.Sprintf("hookwatch: %d sessions, %d pending", sessions, pending)
	if unseen > 0 {
		tip += fmt.Sprintf(", %d new", unseen)
	}
	return tip
}

func formatSessionTitle(s SessionInfo) string {
	v := display.Status(s.Status)
	title := fmt.Sprintf("%s %s: %s", v.Symbol, s.Name, v.Label)
	if s.Elapsed > 0 {
		title += " (" + display.Duration(s.Elapsed) + ")"
	}
	if s.Unseen {
		title += " *"
	}
	return title
}

func formatRequestTitle(r RequestInfo) string {
	if r.Questions > 0 {
		return fmt.Sprintf("%s: %s (%d questions)", r.SessionName, r.ToolName, r.Questions)
	}
	return fmt.Sprintf("%s: %s", r.SessionName, r.ToolName)
}
