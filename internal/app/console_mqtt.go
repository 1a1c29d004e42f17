package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vo_bridge/internal/attitude"
	"github.com/relabs-tech/vo_bridge/internal/bridge"
	"github.com/relabs-tech/vo_bridge/internal/config"
	"github.com/relabs-tech/vo_bridge/internal/pose"
)

// RunConsoleMQTT prints everything the bridge exchanges over MQTT until ctx
// is done. showPoses adds one line per estimator sample.
func RunConsoleMQTT(ctx context.Context, showPoses bool) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to attitude feedback
	attToken := client.Subscribe(cfg.TopicAttitude, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var a attitude.Snapshot
		if err := json.Unmarshal(msg.Payload(), &a); err != nil {
			log.Printf("console: attitude unmarshal error: %v", err)
			return
		}
		fmt.Println(formatAttitude(a))
	})
	attToken.Wait()
	if attToken.Error() != nil {
		return attToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicAttitude)

	// Subscribe to bridge status
	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st bridge.Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(formatStatus(st))
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	if showPoses {
		poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
			var s pose.Sample
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("console: pose unmarshal error: %v", err)
				return
			}
			printSample(os.Stdout, s)
		})
		poseToken.Wait()
		if poseToken.Error() != nil {
			return poseToken.Error()
		}
		log.Printf("console: subscribed to %s", cfg.TopicPose)
	}

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}

func formatAttitude(a attitude.Snapshot) string {
	d := a.InDegrees()
	stale := ""
	if !a.Fresh {
		stale = "  (stale)"
	}
	return fmt.Sprintf("[ATT ] ROLL=%7.2f  PITCH=%7.2f  YAW=%7.2f%s", d.Roll, d.Pitch, d.Yaw, stale)
}

func formatStatus(st bridge.Status) string {
	return fmt.Sprintf(
		"[LINK] %s/%s hb=%d queue=%d dropped=%d rejected=%d deltas=%d estimates=%d conns=%d",
		st.Link, st.Phase, st.Heartbeats, st.QueueDepth, st.QueueDropped, st.Rejected,
		st.DeltasSent, st.EstimatesSent, st.Connections,
	)
}
